package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"device-lending-backend/internal/model"
)

// VisitorRepo provides lookup, search and mutation primitives for
// visitors within the owning transaction.
type VisitorRepo struct {
	db *gorm.DB
}

// Get returns the visitor with the given email, or nil when missing.
func (r *VisitorRepo) Get(ctx context.Context, email string) (*model.Visitor, error) {
	var v model.Visitor
	err := r.db.WithContext(ctx).First(&v, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch visitor %q: %w", email, err)
	}
	return &v, nil
}

// GetByID returns the visitor with the given internal id, or nil.
func (r *VisitorRepo) GetByID(ctx context.Context, id int64) (*model.Visitor, error) {
	var v model.Visitor
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch visitor %d: %w", id, err)
	}
	return &v, nil
}

// GetByChatID returns the visitor attached to the given chat session,
// or nil when no visitor has authenticated from it.
func (r *VisitorRepo) GetByChatID(ctx context.Context, chatID int64) (*model.Visitor, error) {
	var v model.Visitor
	err := r.db.WithContext(ctx).First(&v, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch visitor by chat id %d: %w", chatID, err)
	}
	return &v, nil
}

// List returns all visitors ordered by internal id.
func (r *VisitorRepo) List(ctx context.Context) ([]model.Visitor, error) {
	var visitors []model.Visitor
	if err := r.db.WithContext(ctx).Order("id").Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	return visitors, nil
}

// Search matches a numeric key against the internal id or chat id, and
// a text key as a substring of the identity columns.
func (r *VisitorRepo) Search(ctx context.Context, key string, limit int) ([]model.Visitor, error) {
	tx := r.db.WithContext(ctx)
	if isNumeric(key) {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("visitor search key %q overflows: %w", key, err)
		}
		tx = tx.Where("id = ? OR chat_id = ?", id, id)
	} else {
		clause, args := stringSearch([]string{"email", "full_name", "username", "comment"}, key)
		tx = tx.Where(clause, args...)
	}

	var visitors []model.Visitor
	if err := tx.Order("id").Limit(limit).Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("visitor search for %q failed: %w", key, err)
	}
	return visitors, nil
}

// Add stages a visitor for insertion in the current transaction.
func (r *VisitorRepo) Add(ctx context.Context, v *model.Visitor) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to create visitor %q: %w", v.Email, err)
	}
	return nil
}

// Save writes back changes to an already-loaded visitor.
func (r *VisitorRepo) Save(ctx context.Context, v *model.Visitor) error {
	if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("failed to save visitor %q: %w", v.Email, err)
	}
	return nil
}

// Delete removes the visitor with the given email, returning the
// deleted row or nil when it did not exist.
func (r *VisitorRepo) Delete(ctx context.Context, email string) (*model.Visitor, error) {
	v, err := r.Get(ctx, email)
	if err != nil || v == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Visitor{}, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("failed to delete visitor %q: %w", email, err)
	}
	return v, nil
}

// GetTakenResources returns the resources the visitor currently holds,
// oldest loan first.
func (r *VisitorRepo) GetTakenResources(ctx context.Context, email string) ([]model.Resource, error) {
	var resources []model.Resource
	err := r.db.WithContext(ctx).
		Joins("JOIN records ON records.resource_id = resources.id").
		Where("records.user_email = ? AND records.take_date IS NOT NULL AND NOT records.finished", email).
		Order("records.take_date").
		Find(&resources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch taken resources for %q: %w", email, err)
	}
	return resources, nil
}

// GetQueuedResources returns the resources the visitor is waiting for,
// oldest queue entry first.
func (r *VisitorRepo) GetQueuedResources(ctx context.Context, email string) ([]model.Resource, error) {
	var resources []model.Resource
	err := r.db.WithContext(ctx).
		Joins("JOIN records ON records.resource_id = resources.id").
		Where("records.user_email = ? AND records.enqueue_date IS NOT NULL AND NOT records.finished", email).
		Order("records.enqueue_date").
		Find(&resources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queued resources for %q: %w", email, err)
	}
	return resources, nil
}

// HasActiveRecords reports whether the visitor holds or queues for
// anything; such visitors cannot be deleted.
func (r *VisitorRepo) HasActiveRecords(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Record{}).
		Where("user_email = ? AND NOT finished", email).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to count active records for %q: %w", email, err)
	}
	return n > 0, nil
}
