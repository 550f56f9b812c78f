package repo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"device-lending-backend/internal/model"
)

// Expiring pairs a loan record with the whole days left until its
// agreed return date. Negative means overdue.
type Expiring struct {
	Record   model.Record
	DaysLeft int
}

// RecordRepo provides lookup and mutation primitives for borrow/queue
// records within the owning transaction.
type RecordRepo struct {
	db *gorm.DB
}

// Get returns the record with the given id, or nil when missing.
func (r *RecordRepo) Get(ctx context.Context, id int64) (*model.Record, error) {
	var rec model.Record
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record %d: %w", id, err)
	}
	return &rec, nil
}

// GetTakeRecord returns the active loan of a resource if it is held by
// the given visitor, or nil.
func (r *RecordRepo) GetTakeRecord(ctx context.Context, resourceID int64, email string) (*model.Record, error) {
	var rec model.Record
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND user_email = ? AND take_date IS NOT NULL AND NOT finished", resourceID, email).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch take record for resource %d and %q: %w", resourceID, email, err)
	}
	return &rec, nil
}

// GetQueueRecord returns the visitor's queue entry for a resource, or
// nil when the visitor is not queued.
func (r *RecordRepo) GetQueueRecord(ctx context.Context, resourceID int64, email string) (*model.Record, error) {
	var rec model.Record
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND user_email = ? AND enqueue_date IS NOT NULL AND NOT finished", resourceID, email).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue record for resource %d and %q: %w", resourceID, email, err)
	}
	return &rec, nil
}

// GetExpiring returns the active loans whose agreed return date falls
// at or before the end of the day daysAhead days from now, each with
// the number of whole days until expiry.
func (r *RecordRepo) GetExpiring(ctx context.Context, daysAhead int) ([]Expiring, error) {
	now := time.Now()
	threshold := endOfDay(now).AddDate(0, 0, daysAhead)

	var records []model.Record
	err := r.db.WithContext(ctx).
		Preload("Resource").
		Where("return_date IS NOT NULL AND return_date <= ? AND NOT finished", threshold).
		Order("return_date").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expiring records: %w", err)
	}

	expiring := make([]Expiring, 0, len(records))
	for _, rec := range records {
		days := int(math.Floor(endOfDay(*rec.ReturnDate).Sub(now).Hours() / 24))
		expiring = append(expiring, Expiring{Record: rec, DaysLeft: days})
	}
	return expiring, nil
}

// Add stages a record for insertion in the current transaction.
func (r *RecordRepo) Add(ctx context.Context, rec *model.Record) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create record for resource %d: %w", rec.ResourceID, err)
	}
	return nil
}

// Save writes back changes to an already-loaded record.
func (r *RecordRepo) Save(ctx context.Context, rec *model.Record) error {
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save record %d: %w", rec.ID, err)
	}
	return nil
}

// List returns all records ordered by id.
func (r *RecordRepo) List(ctx context.Context) ([]model.Record, error) {
	var records []model.Record
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Delete removes a record.
func (r *RecordRepo) Delete(ctx context.Context, rec *model.Record) error {
	if err := r.db.WithContext(ctx).Delete(&model.Record{}, "id = ?", rec.ID).Error; err != nil {
		return fmt.Errorf("failed to delete record %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteFinished purges finished records whose return date is older
// than maxAgeDays and reports how many were removed.
func (r *RecordRepo) DeleteFinished(ctx context.Context, maxAgeDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -maxAgeDays)
	tx := r.db.WithContext(ctx).
		Where("finished AND return_date < ?", threshold).
		Delete(&model.Record{})
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to purge finished records: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// GetAllTaken returns every active loan with its resource preloaded.
func (r *RecordRepo) GetAllTaken(ctx context.Context) ([]model.Record, error) {
	var records []model.Record
	err := r.db.WithContext(ctx).
		Preload("Resource").
		Where("take_date IS NOT NULL AND NOT finished").
		Order("take_date").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch taken records: %w", err)
	}
	return records, nil
}

// GetFinishedByResource returns the loan history of a resource, most
// recently returned first.
func (r *RecordRepo) GetFinishedByResource(ctx context.Context, resourceID int64) ([]model.Record, error) {
	var records []model.Record
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND finished", resourceID).
		Order("return_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch finished records for resource %d: %w", resourceID, err)
	}
	return records, nil
}

// GetFinishedByVisitor returns the visitor's loan history, most
// recently returned first.
func (r *RecordRepo) GetFinishedByVisitor(ctx context.Context, email string) ([]model.Record, error) {
	var records []model.Record
	err := r.db.WithContext(ctx).
		Preload("Resource").
		Where("user_email = ? AND finished", email).
		Order("return_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch finished records for %q: %w", email, err)
	}
	return records, nil
}

// endOfDay returns the last nanosecond of t's calendar day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
