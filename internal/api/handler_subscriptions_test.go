package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRoundtrip(t *testing.T) {
	f := newFixture(t)
	alice := token(t, "alice", "")

	t.Run("rejects an empty body", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/subscriptions", alice, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
	})

	body := gin.H{
		"endpoint":           "https://push.example.com/abc",
		"p256dh":             "key",
		"auth":               "secret",
		"subscribed_devices": []string{"DEV001"},
	}

	t.Run("stores the subscription and its device mapping", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/subscriptions", alice, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = f.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", alice, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SubscribedDevices []string `json:"subscribed_devices"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"DEV001"}, resp.SubscribedDevices)
	})

	t.Run("put replaces the device mapping", func(t *testing.T) {
		body["subscribed_devices"] = []string{"DEV002"}
		w := f.do(t, http.MethodPut, "/api/subscriptions", alice, body)
		require.Equal(t, http.StatusCreated, w.Code)

		w = f.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", alice, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SubscribedDevices []string `json:"subscribed_devices"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"DEV002"}, resp.SubscribedDevices)
	})

	t.Run("delete removes the subscription", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/subscriptions", alice,
			gin.H{"endpoint": "https://push.example.com/abc"})
		require.Equal(t, http.StatusNoContent, w.Code)

		w = f.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", alice, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
