package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"device-lending-backend/internal/model"
)

// ResourceRepo provides lookup, search and mutation primitives for
// resources within the owning transaction.
type ResourceRepo struct {
	db *gorm.DB
}

// Get returns the resource with the given id, or nil when missing.
func (r *ResourceRepo) Get(ctx context.Context, id int64) (*model.Resource, error) {
	var res model.Resource
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resource %d: %w", id, err)
	}
	return &res, nil
}

// GetForUpdate returns the resource under a row lock, or nil when
// missing. Concurrent transactions mutating the same resource's
// records serialize on this lock instead of racing each other's
// visibility. SQLite has no row locks; its dialect drops the clause.
func (r *ResourceRepo) GetForUpdate(ctx context.Context, id int64) (*model.Resource, error) {
	var res model.Resource
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock resource %d: %w", id, err)
	}
	return &res, nil
}

// GetByVendorCode returns the resource with the given vendor code, or
// nil when missing.
func (r *ResourceRepo) GetByVendorCode(ctx context.Context, vendorCode string) (*model.Resource, error) {
	var res model.Resource
	err := r.db.WithContext(ctx).First(&res, "vendor_code = ?", vendorCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resource by vendor code %q: %w", vendorCode, err)
	}
	return &res, nil
}

// List returns all resources ordered by id.
func (r *ResourceRepo) List(ctx context.Context) ([]model.Resource, error) {
	var resources []model.Resource
	if err := r.db.WithContext(ctx).Order("id").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// ListByCategory returns resources belonging to the named category.
func (r *ResourceRepo) ListByCategory(ctx context.Context, categoryName string) ([]model.Resource, error) {
	var resources []model.Resource
	err := r.db.WithContext(ctx).
		Where("category_name = ?", categoryName).
		Order("id").
		Find(&resources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list resources of category %q: %w", categoryName, err)
	}
	return resources, nil
}

// Search interprets a purely numeric key below maxID as an id lookup;
// any other key is matched as a substring of the text columns.
func (r *ResourceRepo) Search(ctx context.Context, key string, limit int, maxID int64) ([]model.Resource, error) {
	tx := r.db.WithContext(ctx)
	if isNumeric(key) {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil && id < maxID {
			tx = tx.Where("id = ?", id)
		} else {
			clause, args := stringSearch([]string{"name", "category_name", "vendor_code"}, key)
			tx = tx.Where(clause, args...)
		}
	} else {
		clause, args := stringSearch([]string{"name", "category_name", "vendor_code"}, key)
		tx = tx.Where(clause, args...)
	}

	var resources []model.Resource
	if err := tx.Order("id").Limit(limit).Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("resource search for %q failed: %w", key, err)
	}
	return resources, nil
}

// Add stages a resource for insertion in the current transaction.
func (r *ResourceRepo) Add(ctx context.Context, res *model.Resource) error {
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return fmt.Errorf("failed to create resource %d: %w", res.ID, err)
	}
	return nil
}

// Delete removes the resource with the given id, returning the deleted
// row or nil when it did not exist. Dependent records go with it via
// the cascading foreign key.
func (r *ResourceRepo) Delete(ctx context.Context, id int64) (*model.Resource, error) {
	res, err := r.Get(ctx, id)
	if err != nil || res == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Resource{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete resource %d: %w", id, err)
	}
	return res, nil
}

// DeleteAll bulk-deletes resources and returns the deleted rows. With
// onlyFree set, resources with an active take record are kept.
func (r *ResourceRepo) DeleteAll(ctx context.Context, onlyFree bool) ([]model.Resource, error) {
	tx := r.db.WithContext(ctx)
	if onlyFree {
		tx = tx.Where(
			"NOT EXISTS (SELECT 1 FROM records WHERE records.resource_id = resources.id AND records.take_date IS NOT NULL AND NOT records.finished)")
	}
	var resources []model.Resource
	if err := tx.Order("id").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to select resources for bulk delete: %w", err)
	}
	for i := range resources {
		if err := r.db.WithContext(ctx).Delete(&model.Resource{}, "id = ?", resources[i].ID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete resource %d: %w", resources[i].ID, err)
		}
	}
	return resources, nil
}

// GetQueue returns the live queue for a resource, oldest enqueue first.
// Identical timestamps fall back to insertion order.
func (r *ResourceRepo) GetQueue(ctx context.Context, resourceID int64) ([]model.Record, error) {
	var records []model.Record
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND enqueue_date IS NOT NULL AND NOT finished", resourceID).
		Order("enqueue_date, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue for resource %d: %w", resourceID, err)
	}
	return records, nil
}

// GetTake returns the active take record for a resource, or nil when
// the resource is free.
func (r *ResourceRepo) GetTake(ctx context.Context, resourceID int64) (*model.Record, error) {
	var record model.Record
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND take_date IS NOT NULL AND NOT finished", resourceID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch take record for resource %d: %w", resourceID, err)
	}
	return &record, nil
}
