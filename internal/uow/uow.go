// Package uow provides the transactional scope every engine operation
// runs in: one database transaction, one consistent bundle of
// repositories, commit on success and rollback on any error.
package uow

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"device-lending-backend/internal/repo"
)

// ErrRollback aborts the surrounding transaction without signalling an
// infrastructure fault. Scope functions return it after recording a
// domain failure so that nothing staged so far is committed.
var ErrRollback = errors.New("uow: rollback requested")

// Factory creates transactional scopes against one store handle. The
// handle is injected at construction; there is no ambient global.
type Factory struct {
	db *gorm.DB
}

// NewFactory wraps a store handle in a scope factory.
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// DB exposes the underlying handle for wiring collaborators that
// manage their own reads (e.g. the notification worker pool).
func (f *Factory) DB() *gorm.DB {
	return f.db
}

// Scope is one open transaction with its repository bundle. It is only
// valid inside the function passed to Do.
type Scope struct {
	*repo.Repos
	tx *gorm.DB
}

// Merge reattaches a detached entity to the current transaction by
// writing its state back.
func (s *Scope) Merge(ctx context.Context, value any) error {
	if err := s.tx.WithContext(ctx).Save(value).Error; err != nil {
		return fmt.Errorf("failed to merge entity into transaction: %w", err)
	}
	return nil
}

// Do runs fn inside one database transaction. A nil return commits;
// any error (including ErrRollback) rolls back every staged write and
// is resurfaced to the caller.
func (f *Factory) Do(ctx context.Context, fn func(s *Scope) error) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Scope{Repos: repo.New(tx), tx: tx})
	})
}
