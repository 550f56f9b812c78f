package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"device-lending-backend/internal/model"
)

// CategoryRepo provides lookup and mutation primitives for the small
// admin-managed category list.
type CategoryRepo struct {
	db *gorm.DB
}

// Get returns the category with the given name, or nil when missing.
func (r *CategoryRepo) Get(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category %q: %w", name, err)
	}
	return &c, nil
}

// Add stages a category for insertion in the current transaction.
func (r *CategoryRepo) Add(ctx context.Context, c *model.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create category %q: %w", c.Name, err)
	}
	return nil
}

// List returns all categories in name order.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Delete removes the category with the given name, returning the
// deleted row or nil when it did not exist.
func (r *CategoryRepo) Delete(ctx context.Context, name string) (*model.Category, error) {
	c, err := r.Get(ctx, name)
	if err != nil || c == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Category{}, "name = ?", name).Error; err != nil {
		return nil, fmt.Errorf("failed to delete category %q: %w", name, err)
	}
	return c, nil
}
