package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"devlab-reservation-backend/config"
	"devlab-reservation-backend/internal/model"
	"devlab-reservation-backend/internal/notification"
	"devlab-reservation-backend/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// flakyStore fails ListCurrent on demand to simulate a transient outage.
type flakyStore struct {
	store.Store
	fail bool
}

func (f *flakyStore) ListCurrent(ctx context.Context) ([]model.Reservation, error) {
	if f.fail {
		return nil, errors.New("store unreachable")
	}
	return f.Store.ListCurrent(ctx)
}

type capturingSender struct {
	payloads chan string
}

func (c *capturingSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	c.payloads <- string(payload)
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}, nil
}

func newServiceFixture(t *testing.T, now time.Time) (*Service, *flakyStore, *fakeClock, chan string) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&model.Device{},
		&model.Reservation{},
		&model.ReservationHistory{},
		&model.PushSubscription{},
	))

	base := store.NewGormStore(db)
	require.NoError(t, base.SaveDevice(context.Background(), &model.Device{ID: "DEV001", DisplayName: "Rack 1 Slot 1"}))

	sub := model.PushSubscription{Endpoint: "https://example.com/push", P256DH: "p256dh", Auth: "auth", Owner: "alice"}
	require.NoError(t, db.Create(&sub).Error)
	var device model.Device
	require.NoError(t, db.First(&device, "id = ?", "DEV001").Error)
	require.NoError(t, db.Model(&sub).Association("Devices").Append(&device))

	flaky := &flakyStore{Store: base}
	clock := &fakeClock{now: now}

	pool := notification.NewWorkerPool(2, db, &webpush.Options{})
	payloads := make(chan string, 16)
	pool.SetSender(&capturingSender{payloads: payloads})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool.Start(ctx)

	cfg := &config.Config{}
	cfg.Refresh.Enabled = true
	svc := NewService(cfg, flaky, pool, clock)
	return svc, flaky, clock, payloads
}

func insertReservation(t *testing.T, s store.Store, id, owner string, start, end time.Time) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), &model.Reservation{
		ID:       id,
		DeviceID: "DEV001",
		Owner:    owner,
		StartsAt: start,
		EndsAt:   end,
		Status:   model.StatusUpcoming,
	}))
}

func TestService_ReconcileAndSnapshot(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	svc, flaky, clock, _ := newServiceFixture(t, now)
	ctx := context.Background()

	insertReservation(t, flaky, "current", "alice",
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC))
	insertReservation(t, flaky, "later", "bob",
		time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC))

	svc.Reconcile(ctx)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, model.StatusActive, snapshot[0].Status)
	assert.Equal(t, model.StatusUpcoming, snapshot[1].Status)

	// Time passes past the first reservation's end: the snapshot itself is
	// stale, but derivation on read prunes and reclassifies correctly.
	clock.now = time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)
	snapshot = svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "later", snapshot[0].ID)
	assert.Equal(t, model.StatusUpcoming, snapshot[0].Status)
}

func TestService_ReconcileFailureKeepsSnapshot(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	svc, flaky, _, _ := newServiceFixture(t, now)
	ctx := context.Background()

	insertReservation(t, flaky, "current", "alice",
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC))
	svc.Reconcile(ctx)
	require.Len(t, svc.Snapshot(), 1)

	flaky.fail = true
	svc.Reconcile(ctx)

	assert.Len(t, svc.Snapshot(), 1, "failed re-fetch must keep the previous snapshot")
}

func TestService_CountdownFiresThresholdOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, flaky, clock, payloads := newServiceFixture(t, now)
	ctx := context.Background()

	// Active session ending in 31 minutes.
	insertReservation(t, flaky, "session", "alice", now.Add(-time.Hour), now.Add(31*time.Minute))
	svc.Reconcile(ctx)

	// One minute of 1-second ticks crossing the 30-minute mark.
	for tick := 0; tick <= 90; tick++ {
		clock.now = now.Add(time.Duration(tick) * time.Second)
		svc.Countdown(ctx)
	}

	select {
	case msg := <-payloads:
		assert.Equal(t, "Your session on DEV001 ends in 30 minutes.", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the threshold notification")
	}

	select {
	case msg := <-payloads:
		t.Fatalf("threshold fired more than once: %q", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestService_SweepNotifiesFreedDevice(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, flaky, _, payloads := newServiceFixture(t, now)
	ctx := context.Background()

	insertReservation(t, flaky, "finished", "alice",
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC))

	svc.Sweep(ctx)

	select {
	case msg := <-payloads:
		assert.Equal(t, "Device DEV001 is now available.", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the freed-device notification")
	}

	current, err := flaky.ListCurrent(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)
}
