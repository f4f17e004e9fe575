package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"devlab-reservation-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(&model.Device{}, &model.PushSubscription{}))
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, endpoint, deviceID string) {
	device := model.Device{ID: deviceID, DisplayName: "Device " + deviceID}
	require.NoError(t, db.Create(&device).Error)

	sub := model.PushSubscription{Endpoint: endpoint, P256DH: "p256dh", Auth: "auth", Owner: "alice"}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Model(&sub).Association("Devices").Append(&device))
}

func TestWorkerPool_SendsToDeviceSubscribers(t *testing.T) {
	db := newTestDB(t)
	seedSubscription(t, db, "https://example.com/push", "DEV001")

	wp := NewWorkerPool(1, db, &webpush.Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "https://example.com/push", sub.Endpoint)
			assert.Equal(t, "Your session on DEV001 ends in 30 minutes.", string(payload))
			wg.Done()
			return &http.Response{
				StatusCode: http.StatusCreated,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(Notice{
		DeviceID: "DEV001",
		Message:  Message("DEV001", Threshold{Name: "30m", Remaining: 30 * time.Minute}),
	})
	wg.Wait()
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	db := newTestDB(t)
	seedSubscription(t, db, "https://example.com/expired", "DEV002")

	wp := NewWorkerPool(1, db, &webpush.Options{})

	sent := make(chan struct{})
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			defer close(sent)
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(Notice{DeviceID: "DEV002", Message: "Device DEV002 is now available."})

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the push attempt")
	}

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.PushSubscription{}).Where("endpoint = ?", "https://example.com/expired").Count(&count)
		return count == 0
	}, time.Second, 10*time.Millisecond, "expired subscription should be deleted")
}

func TestWorkerPool_NoSubscribersIsQuiet(t *testing.T) {
	db := newTestDB(t)

	wp := NewWorkerPool(1, db, &webpush.Options{})
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Error("no notification should be sent without subscribers")
			return nil, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(Notice{DeviceID: "DEV404", Message: "unused"})
	time.Sleep(100 * time.Millisecond)
}
