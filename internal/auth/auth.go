// Package auth extracts the caller identity from a JWT bearer token. It is the
// boundary to the external authentication collaborator: tokens are issued
// elsewhere, this package only verifies them and exposes user + role.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"devlab-reservation-backend/internal/store"
)

// RoleAdmin marks administrators; everything else is a regular user.
const RoleAdmin = "admin"

const identityKey = "auth.identity"

var errInvalidToken = errors.New("invalid or expired token")

// ParseToken verifies an HS256 token and returns the requester it names.
func ParseToken(tokenString, secret string) (store.Requester, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return store.Requester{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return store.Requester{}, errInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return store.Requester{}, errInvalidToken
	}
	role, _ := claims["role"].(string)

	return store.Requester{User: sub, Admin: role == RoleAdmin}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// requester in the gin context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		req, err := ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(identityKey, req)
		c.Next()
	}
}

// AdminOnly rejects non-admin requesters. Must run after Middleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Identity(c).Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}

// Identity returns the requester stored by Middleware.
func Identity(c *gin.Context) store.Requester {
	v, _ := c.Get(identityKey)
	req, _ := v.(store.Requester)
	return req
}
