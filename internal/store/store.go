package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"devlab-reservation-backend/internal/model"
)

// Store is the sole authority for reservation overlap truth and the durable
// home of reservation and device records.
type Store interface {
	// Insert creates the reservation iff no non-terminated reservation on the
	// same device overlaps its half-open window. Returns ErrConflict otherwise.
	Insert(ctx context.Context, r *model.Reservation) error
	// Cancel transitions the reservation to the sticky terminated status.
	// Cancelling an already-terminated reservation is a no-op.
	Cancel(ctx context.Context, id string, req Requester) error
	// QueryOverlapping returns all non-terminated reservations on the device
	// whose interval intersects [start, end). An empty result means available.
	QueryOverlapping(ctx context.Context, deviceID string, start, end time.Time) ([]model.Reservation, error)
	// ListForOwner returns the requester's reservations; admins may pass
	// all=true to list everyone's. The restriction is enforced here.
	ListForOwner(ctx context.Context, req Requester, all bool) ([]model.Reservation, error)
	// ListCurrent returns the whole non-terminated working set.
	ListCurrent(ctx context.Context) ([]model.Reservation, error)
	// ArchiveFinished moves terminated and past-end reservations into the
	// history table and reports the devices that were freed while in use.
	ArchiveFinished(ctx context.Context, now time.Time) ([]string, error)
	// ListHistory returns archived reservations, optionally filtered by device.
	// Non-admin requesters only see their own history.
	ListHistory(ctx context.Context, req Requester, deviceID string) ([]model.ReservationHistory, error)

	ListDevices(ctx context.Context) ([]model.Device, error)
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	SaveDevice(ctx context.Context, d *model.Device) error
	DeleteDevice(ctx context.Context, id string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB

	// insertMu serializes Insert on drivers without advisory locks. SQLite
	// allows the overlap check of two deferred transactions to interleave
	// before either write, so the check-then-create pair must not overlap.
	insertMu sync.Mutex
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// overlapScope selects non-terminated reservations on the device intersecting
// the half-open window [start, end). Touching intervals do not intersect.
func overlapScope(tx *gorm.DB, deviceID string, start, end time.Time) *gorm.DB {
	return tx.Where(
		"device_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
		deviceID, model.StatusTerminated, end, start,
	)
}

func (s *gormStore) Insert(ctx context.Context, r *model.Reservation) error {
	if s.db.Dialector.Name() != "postgres" {
		s.insertMu.Lock()
		defer s.insertMu.Unlock()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			// A per-device advisory lock, held until commit, serializes
			// racing inserts: exactly one of two concurrent bookings for
			// overlapping windows observes the other. Row locks cannot do
			// this, a free window has no rows to lock.
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", r.DeviceID).Error; err != nil {
				return fmt.Errorf("serialize inserts for device %s: %w", r.DeviceID, err)
			}
		}

		var overlapping int64
		q := tx.Model(&model.Reservation{})
		if err := overlapScope(q, r.DeviceID, r.StartsAt, r.EndsAt).Count(&overlapping).Error; err != nil {
			return fmt.Errorf("overlap check for device %s: %w", r.DeviceID, err)
		}
		if overlapping > 0 {
			return ErrConflict
		}

		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("create reservation %s: %w", r.ID, err)
		}
		return nil
	})
}

func (s *gormStore) Cancel(ctx context.Context, id string, req Requester) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.Reservation
		if err := tx.First(&r, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load reservation %s: %w", id, err)
		}

		if !req.Admin && r.Owner != req.User {
			return ErrForbidden
		}

		if r.Status == model.StatusTerminated {
			return nil
		}

		if err := tx.Model(&r).Update("status", model.StatusTerminated).Error; err != nil {
			return fmt.Errorf("terminate reservation %s: %w", id, err)
		}
		return nil
	})
}

func (s *gormStore) QueryOverlapping(ctx context.Context, deviceID string, start, end time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	q := overlapScope(s.db.WithContext(ctx), deviceID, start, end)
	if err := q.Order("starts_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query overlapping for device %s: %w", deviceID, err)
	}
	return out, nil
}

func (s *gormStore) ListForOwner(ctx context.Context, req Requester, all bool) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).Model(&model.Reservation{})
	if !(all && req.Admin) {
		q = q.Where("owner = ?", req.User)
	}

	var out []model.Reservation
	if err := q.Order("starts_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

func (s *gormStore) ListCurrent(ctx context.Context) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).
		Where("status <> ?", model.StatusTerminated).
		Order("starts_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list current reservations: %w", err)
	}
	return out, nil
}

func (s *gormStore) ArchiveFinished(ctx context.Context, now time.Time) ([]string, error) {
	var freed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var finished []model.Reservation
		// Strictly past the end: at the exact end instant the reservation
		// still derives as active and must survive the sweep.
		if err := tx.Where("status = ? OR ends_at < ?", model.StatusTerminated, now).
			Find(&finished).Error; err != nil {
			return fmt.Errorf("fetch finished reservations: %w", err)
		}

		seen := make(map[string]bool)
		for _, r := range finished {
			status := model.StatusCompleted
			if r.Status == model.StatusTerminated {
				status = model.StatusTerminated
			}

			record := model.ReservationHistory{
				ReservationID: r.ID,
				DeviceID:      r.DeviceID,
				Owner:         r.Owner,
				StartsAt:      r.StartsAt,
				EndsAt:        r.EndsAt,
				Status:        status,
				ArchivedAt:    now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("archive reservation %s: %w", r.ID, err)
			}
			if err := tx.Delete(&model.Reservation{}, "id = ?", r.ID).Error; err != nil {
				return fmt.Errorf("delete archived reservation %s: %w", r.ID, err)
			}

			// A device is freed only when a reservation that was covering the
			// current instant ended; upcoming ones never held the device.
			if status == model.StatusCompleted && !r.StartsAt.After(now) && !seen[r.DeviceID] {
				seen[r.DeviceID] = true
				freed = append(freed, r.DeviceID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return freed, nil
}

func (s *gormStore) ListHistory(ctx context.Context, req Requester, deviceID string) ([]model.ReservationHistory, error) {
	q := s.db.WithContext(ctx).Model(&model.ReservationHistory{})
	if !req.Admin {
		q = q.Where("owner = ?", req.User)
	}
	if deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}

	var out []model.ReservationHistory
	if err := q.Order("archived_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reservation history: %w", err)
	}
	return out, nil
}

func (s *gormStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	var out []model.Device
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get device %s: %w", id, err)
	}
	return &d, nil
}

func (s *gormStore) SaveDevice(ctx context.Context, d *model.Device) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "pc_ip", "rutomatrix_ip", "pulse1_ip", "ct1_ip", "updated_at"}),
	}).Create(d).Error
	if err != nil {
		return fmt.Errorf("save device %s: %w", d.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteDevice(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Device{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete device %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
