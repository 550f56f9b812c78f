package lending

import (
	"context"

	"device-lending-backend/internal/model"
	"device-lending-backend/internal/result"
	"device-lending-backend/internal/uow"
)

// CategoryService manages the small admin-curated device-type list.
type CategoryService struct {
	uow *uow.Factory
}

// NewCategoryService creates the service.
func NewCategoryService(f *uow.Factory) *CategoryService {
	return &CategoryService{uow: f}
}

// Add inserts a category, failing on a duplicate name.
func (s *CategoryService) Add(ctx context.Context, name string) (result.Result[model.Category], error) {
	var res result.Result[model.Category]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		existing, err := u.Categories.Get(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			res = result.Failure[model.Category](result.CodeConflict,
				"category with name %s already exists", name)
			return uow.ErrRollback
		}
		category := model.Category{Name: name}
		if err := u.Categories.Add(ctx, &category); err != nil {
			return err
		}
		res = result.Success(category)
		return nil
	})
	return res, finish(err)
}

// Get returns the category with the given name.
func (s *CategoryService) Get(ctx context.Context, name string) (result.Result[model.Category], error) {
	var res result.Result[model.Category]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		category, err := u.Categories.Get(ctx, name)
		if err != nil {
			return err
		}
		if category == nil {
			res = result.Failure[model.Category](result.CodeNotFound, "no category with name %s", name)
			return uow.ErrRollback
		}
		res = result.Success(*category)
		return nil
	})
	return res, finish(err)
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) (result.Result[[]model.Category], error) {
	var res result.Result[[]model.Category]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		categories, err := u.Categories.List(ctx)
		if err != nil {
			return err
		}
		res = result.Success(categories)
		return nil
	})
	return res, finish(err)
}

// Delete removes a category.
func (s *CategoryService) Delete(ctx context.Context, name string) (result.Result[model.Category], error) {
	var res result.Result[model.Category]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		category, err := u.Categories.Delete(ctx, name)
		if err != nil {
			return err
		}
		if category == nil {
			res = result.Failure[model.Category](result.CodeNotFound, "no category with name %s", name)
			return uow.ErrRollback
		}
		res = result.Success(*category)
		return nil
	})
	return res, finish(err)
}

// Seed inserts the configured category names that are not present yet.
// Existing rows are left alone.
func (s *CategoryService) Seed(ctx context.Context, names []string) error {
	return s.uow.Do(ctx, func(u *uow.Scope) error {
		for _, name := range names {
			if err := ensureCategory(ctx, u, name); err != nil {
				return err
			}
		}
		return nil
	})
}
