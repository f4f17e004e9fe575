package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"devlab-reservation-backend/config"
	"devlab-reservation-backend/internal/auth"
	"devlab-reservation-backend/internal/booking"
	"devlab-reservation-backend/internal/mw"
	"devlab-reservation-backend/internal/status"
	"devlab-reservation-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, engine *booking.Engine, clock status.Clock, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, engine, clock, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	authed := auth.Middleware(cfg.Auth.JWTSecret)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public surface
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		// Authenticated surface
		api.GET("/devices", authed, caching, handler.GetDevices)
		api.POST("/availability", authed, handler.CheckAvailability)

		api.POST("/reservations", authed, handler.CreateReservation)
		api.GET("/reservations", authed, handler.ListReservations)
		api.DELETE("/reservations/:id", authed, handler.CancelReservation)

		api.GET("/history", authed, handler.GetHistory)

		api.GET("/subscriptions", authed, handler.GetSubscription)
		api.PUT("/subscriptions", authed, handler.PutSubscription)
		api.DELETE("/subscriptions", authed, handler.DeleteSubscription)

		// Admin surface
		admin := api.Group("", authed, auth.AdminOnly())
		{
			admin.POST("/devices", handler.SaveDevice)
			admin.PUT("/devices/:id", handler.SaveDevice)
			admin.DELETE("/devices/:id", handler.DeleteDevice)
		}
	}

	return r
}
