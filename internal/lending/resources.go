package lending

import (
	"context"
	"strconv"
	"strings"

	"device-lending-backend/internal/model"
	"device-lending-backend/internal/result"
	"device-lending-backend/internal/uow"
)

// ResourceService covers the administrative side of the pool: lookup,
// search, inventory additions (single and batch) and field edits.
type ResourceService struct {
	uow *uow.Factory
	// Numeric search keys below this ceiling are treated as resource
	// ids; larger numbers are matched as vendor-code text.
	searchMaxID int64
}

// NewResourceService creates the service. searchMaxID is the ceiling
// for interpreting numeric search keys as ids.
func NewResourceService(f *uow.Factory, searchMaxID int64) *ResourceService {
	return &ResourceService{uow: f, searchMaxID: searchMaxID}
}

// Get returns the flattened view of one resource.
func (s *ResourceService) Get(ctx context.Context, resourceID int64) (result.Result[ResourceInfo], error) {
	var res result.Result[ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.Get(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[ResourceInfo](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		take, err := u.Resources.GetTake(ctx, resourceID)
		if err != nil {
			return err
		}
		res = result.Success(NewResourceInfo(resource, take))
		return nil
	})
	return res, finish(err)
}

// GetByVendorCode returns the flattened view of the resource with the
// given vendor code.
func (s *ResourceService) GetByVendorCode(ctx context.Context, vendorCode string) (result.Result[ResourceInfo], error) {
	var res result.Result[ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.GetByVendorCode(ctx, vendorCode)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[ResourceInfo](result.CodeNotFound,
				"resource with vendor_code %s not found", vendorCode)
			return uow.ErrRollback
		}
		take, err := u.Resources.GetTake(ctx, resource.ID)
		if err != nil {
			return err
		}
		res = result.Success(NewResourceInfo(resource, take))
		return nil
	})
	return res, finish(err)
}

// List returns the flattened view of the whole pool.
func (s *ResourceService) List(ctx context.Context) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		infos, err := s.flatten(ctx, u, nil)
		if err != nil {
			return err
		}
		res = result.Success(infos)
		return nil
	})
	return res, finish(err)
}

// ListByCategory returns the resources of one category.
func (s *ResourceService) ListByCategory(ctx context.Context, categoryName string) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		category, err := u.Categories.Get(ctx, categoryName)
		if err != nil {
			return err
		}
		if category == nil {
			res = result.Failure[[]ResourceInfo](result.CodeNotFound,
				"category with name %s not found", categoryName)
			return uow.ErrRollback
		}
		resources, err := u.Resources.ListByCategory(ctx, categoryName)
		if err != nil {
			return err
		}
		infos, err := s.flatten(ctx, u, resources)
		if err != nil {
			return err
		}
		res = result.Success(infos)
		return nil
	})
	return res, finish(err)
}

// Categories returns the category names that have at least one
// resource.
func (s *ResourceService) Categories(ctx context.Context) (result.Result[[]string], error) {
	var res result.Result[[]string]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resources, err := u.Resources.List(ctx)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{})
		var names []string
		for _, r := range resources {
			if _, ok := seen[r.CategoryName]; ok {
				continue
			}
			seen[r.CategoryName] = struct{}{}
			names = append(names, r.CategoryName)
		}
		res = result.Success(names)
		return nil
	})
	return res, finish(err)
}

// Search finds resources by id or text key.
func (s *ResourceService) Search(ctx context.Context, key string, limit int) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resources, err := u.Resources.Search(ctx, key, limit, s.searchMaxID)
		if err != nil {
			return err
		}
		infos, err := s.flatten(ctx, u, resources)
		if err != nil {
			return err
		}
		res = result.Success(infos)
		return nil
	})
	return res, finish(err)
}

// GetFinishedRecords returns the loan history of one resource.
func (s *ResourceService) GetFinishedRecords(ctx context.Context, resourceID int64) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.Get(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[[]ResourceInfo](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		records, err := u.Records.GetFinishedByResource(ctx, resourceID)
		if err != nil {
			return err
		}
		infos := make([]ResourceInfo, 0, len(records))
		for i := range records {
			infos = append(infos, NewResourceInfo(resource, &records[i]))
		}
		res = result.Success(infos)
		return nil
	})
	return res, finish(err)
}

// AddWithRecord inserts one resource and, optionally, the active loan
// it arrives with. The visitor behind the loan is created on the fly
// when unknown.
func (s *ResourceService) AddWithRecord(ctx context.Context, resource model.Resource, takeRecord *model.Record) (result.Result[ResourceInfo], error) {
	return s.AddManyWithRecords(ctx, []ResourceWithRecord{{Resource: resource, TakeRecord: takeRecord}})
}

// AddManyWithRecords inserts a batch of resources, rejecting the whole
// batch when ids or vendor codes collide within it, when a resource id
// already exists, or when a paired record references a different
// resource. Nothing is persisted on failure.
func (s *ResourceService) AddManyWithRecords(ctx context.Context, batch []ResourceWithRecord) (result.Result[ResourceInfo], error) {
	if check := checkBatchDuplicates(batch); check.IsFailure() {
		return check, nil
	}

	var res result.Result[ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		for i := range batch {
			resource := batch[i].Resource
			takeRecord := batch[i].TakeRecord

			existing, err := u.Resources.Get(ctx, resource.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				res = result.Failure[ResourceInfo](result.CodeConflict,
					"resource with id %d already exists", resource.ID)
				return uow.ErrRollback
			}
			byCode, err := u.Resources.GetByVendorCode(ctx, resource.VendorCode)
			if err != nil {
				return err
			}
			if byCode != nil {
				res = result.Failure[ResourceInfo](result.CodeConflict,
					"resource with vendor_code %s already exists", resource.VendorCode)
				return uow.ErrRollback
			}
			if err := ensureCategory(ctx, u, resource.CategoryName); err != nil {
				return err
			}
			if err := u.Resources.Add(ctx, &resource); err != nil {
				return err
			}

			if takeRecord == nil || takeRecord.UserEmail == "" {
				continue
			}
			if takeRecord.ResourceID != resource.ID {
				res = result.Failure[ResourceInfo](result.CodePreconditionFailed,
					"record has resource_id %d, but resource has %d", takeRecord.ResourceID, resource.ID)
				return uow.ErrRollback
			}
			if err := ensureVisitor(ctx, u, takeRecord.UserEmail); err != nil {
				return err
			}
			if err := u.Records.Add(ctx, takeRecord); err != nil {
				return err
			}
		}
		res = result.Ok[ResourceInfo]()
		return nil
	})
	return res, finish(err)
}

// UpdateField edits one resource field from the closed editable set.
func (s *ResourceService) UpdateField(ctx context.Context, resourceID int64, field EditableField, value string) (result.Result[ResourceInfo], error) {
	var res result.Result[ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.Get(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[ResourceInfo](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		if field == FieldVendorCode && value != resource.VendorCode {
			byCode, err := u.Resources.GetByVendorCode(ctx, value)
			if err != nil {
				return err
			}
			if byCode != nil {
				res = result.Failure[ResourceInfo](result.CodeConflict,
					"resource with vendor_code %s already exists", value)
				return uow.ErrRollback
			}
		}
		if field == FieldCategory && value != "" {
			if err := ensureCategory(ctx, u, value); err != nil {
				return err
			}
		}
		if err := field.Apply(resource, value); err != nil {
			res = result.Failure[ResourceInfo](result.CodeValidationFailed, "%v", err)
			return uow.ErrRollback
		}
		if err := u.Merge(ctx, resource); err != nil {
			return err
		}
		take, err := u.Resources.GetTake(ctx, resourceID)
		if err != nil {
			return err
		}
		res = result.Success(NewResourceInfo(resource, take))
		return nil
	})
	return res, finish(err)
}

// Delete removes a resource. A resource somebody currently holds
// cannot be deleted.
func (s *ResourceService) Delete(ctx context.Context, resourceID int64) (result.Result[model.Resource], error) {
	var res result.Result[model.Resource]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		take, err := u.Resources.GetTake(ctx, resourceID)
		if err != nil {
			return err
		}
		if take != nil {
			res = result.Failure[model.Resource](result.CodePreconditionFailed,
				"resource with id %d is currently taken by %s", resourceID, take.UserEmail)
			return uow.ErrRollback
		}
		resource, err := u.Resources.Delete(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[model.Resource](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		res = result.Success(*resource)
		return nil
	})
	return res, finish(err)
}

// DeleteAllFree bulk-deletes every resource without an active loan.
func (s *ResourceService) DeleteAllFree(ctx context.Context) (result.Result[[]model.Resource], error) {
	var res result.Result[[]model.Resource]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resources, err := u.Resources.DeleteAll(ctx, true)
		if err != nil {
			return err
		}
		res = result.Success(resources)
		return nil
	})
	return res, finish(err)
}

// flatten converts resources to their active-loan views. A nil slice
// means "all resources".
func (s *ResourceService) flatten(ctx context.Context, u *uow.Scope, resources []model.Resource) ([]ResourceInfo, error) {
	var err error
	if resources == nil {
		resources, err = u.Resources.List(ctx)
		if err != nil {
			return nil, err
		}
	}
	infos := make([]ResourceInfo, 0, len(resources))
	for i := range resources {
		take, err := u.Resources.GetTake(ctx, resources[i].ID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, NewResourceInfo(&resources[i], take))
	}
	return infos, nil
}

// checkBatchDuplicates rejects batches that collide internally on id
// or vendor code before anything touches the store.
func checkBatchDuplicates(batch []ResourceWithRecord) result.Result[ResourceInfo] {
	idCounts := make(map[int64]int, len(batch))
	codeCounts := make(map[string]int, len(batch))
	for i := range batch {
		idCounts[batch[i].Resource.ID]++
		codeCounts[batch[i].Resource.VendorCode]++
	}
	var dupIDs, dupCodes []string
	for i := range batch {
		id := batch[i].Resource.ID
		if idCounts[id] > 1 {
			idCounts[id] = 0
			dupIDs = append(dupIDs, strconv.FormatInt(id, 10))
		}
		code := batch[i].Resource.VendorCode
		if codeCounts[code] > 1 {
			codeCounts[code] = 0
			dupCodes = append(dupCodes, code)
		}
	}
	if len(dupIDs) > 0 {
		return result.Failure[ResourceInfo](result.CodeValidationFailed,
			"duplicated resource ids: %s", strings.Join(dupIDs, ", "))
	}
	if len(dupCodes) > 0 {
		return result.Failure[ResourceInfo](result.CodeValidationFailed,
			"duplicated vendor codes: %s", strings.Join(dupCodes, ", "))
	}
	return result.Ok[ResourceInfo]()
}

// ensureVisitor creates a minimal visitor row for an email the system
// has not seen yet, so admins can assign resources ahead of first
// contact.
func ensureVisitor(ctx context.Context, u *uow.Scope, email string) error {
	visitor, err := u.Visitors.Get(ctx, email)
	if err != nil {
		return err
	}
	if visitor != nil {
		return nil
	}
	return u.Visitors.Add(ctx, &model.Visitor{Email: email})
}

// ensureCategory creates the category row when the imported resource
// names one the store does not have yet.
func ensureCategory(ctx context.Context, u *uow.Scope, name string) error {
	category, err := u.Categories.Get(ctx, name)
	if err != nil {
		return err
	}
	if category != nil {
		return nil
	}
	return u.Categories.Add(ctx, &model.Category{Name: name})
}
