// Package lending implements the lending/queueing engine: the state
// machine that moves resources between free, taken and returned, with
// FIFO waitlist promotion. All operations are stateless; every call
// runs inside its own transactional scope and reports expected domain
// conditions through the result package.
package lending

import (
	"context"
	"errors"
	"time"

	"device-lending-backend/internal/model"
	"device-lending-backend/internal/result"
	"device-lending-backend/internal/uow"
)

// Service is the lending/queueing engine.
type Service struct {
	uow *uow.Factory
}

// NewService creates the engine on top of a unit-of-work factory.
func NewService(f *uow.Factory) *Service {
	return &Service{uow: f}
}

// finish strips the rollback sentinel: a scope aborted after recording
// a domain failure is not an infrastructure fault.
func finish(err error) error {
	if errors.Is(err, uow.ErrRollback) {
		return nil
	}
	return err
}

// checkExists verifies that both sides of an operation are known. It
// runs inside the caller's scope so the check stays consistent with
// whatever the caller mutates next.
func checkExists(ctx context.Context, u *uow.Scope, resourceID int64, email string) (result.Result[struct{}], error) {
	resource, err := u.Resources.Get(ctx, resourceID)
	if err != nil {
		return result.Ok[struct{}](), err
	}
	if resource == nil {
		return result.Failure[struct{}](result.CodeNotFound, "resource with id %d not found", resourceID), nil
	}
	return checkVisitor(ctx, u, email)
}

// checkVisitor verifies that the visitor is known.
func checkVisitor(ctx context.Context, u *uow.Scope, email string) (result.Result[struct{}], error) {
	visitor, err := u.Visitors.Get(ctx, email)
	if err != nil {
		return result.Ok[struct{}](), err
	}
	if visitor == nil {
		return result.Failure[struct{}](result.CodeNotFound, "visitor with email %s not found", email), nil
	}
	return result.Ok[struct{}](), nil
}

// GetAvailableAction resolves which single action is currently valid
// for the visitor on the resource. Decision order: free resource means
// take; the current holder returns; an already-queued visitor leaves;
// everyone else queues.
func (s *Service) GetAvailableAction(ctx context.Context, resourceID int64, email string) (result.Result[Action], error) {
	var res result.Result[Action]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		check, err := checkExists(ctx, u, resourceID, email)
		if err != nil {
			return err
		}
		if check.IsFailure() {
			res = result.Forward[Action](check)
			return uow.ErrRollback
		}

		take, err := u.Resources.GetTake(ctx, resourceID)
		if err != nil {
			return err
		}
		switch {
		case take == nil:
			res = result.Success(ActionTake)
		case take.UserEmail == email:
			res = result.Success(ActionReturn)
		default:
			queued, err := u.Records.GetQueueRecord(ctx, resourceID, email)
			if err != nil {
				return err
			}
			if queued != nil {
				res = result.Success(ActionLeave)
			} else {
				res = result.Success(ActionQueue)
			}
		}
		return nil
	})
	return res, finish(err)
}

// TakeResource creates a new active loan. The resource row is locked
// before the free-check, so two concurrent takes on the same resource
// resolve to one success and one Conflict rather than racing the
// uniqueness index.
func (s *Service) TakeResource(ctx context.Context, resourceID int64, email string, address *string, returnDate *time.Time) (result.Result[ResourceInfo], error) {
	var res result.Result[ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.GetForUpdate(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[ResourceInfo](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		check, err := checkVisitor(ctx, u, email)
		if err != nil {
			return err
		}
		if check.IsFailure() {
			res = result.Forward[ResourceInfo](check)
			return uow.ErrRollback
		}

		take, err := u.Resources.GetTake(ctx, resourceID)
		if err != nil {
			return err
		}
		if take != nil {
			res = result.Failure[ResourceInfo](result.CodeConflict,
				"take record for resource with id %d already exists", resourceID)
			return uow.ErrRollback
		}

		now := time.Now()
		record := model.Record{
			ResourceID: resourceID,
			UserEmail:  email,
			TakeDate:   &now,
			ReturnDate: returnDate,
			Address:    address,
		}
		if err := u.Records.Add(ctx, &record); err != nil {
			return err
		}
		res = result.Success(NewResourceInfo(resource, &record))
		return nil
	})
	return res, finish(err)
}

// ReturnResource finishes the active loan and, atomically in the same
// transaction, promotes the head of the queue (smallest enqueue
// timestamp) to the new holder. A resource with a waitlist is never
// observably free between the two steps, and exactly one record is
// promoted.
func (s *Service) ReturnResource(ctx context.Context, resourceID int64) (result.Result[ReturnResult], error) {
	var res result.Result[ReturnResult]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.GetForUpdate(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[ReturnResult](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}

		take, err := u.Resources.GetTake(ctx, resourceID)
		if err != nil {
			return err
		}
		if take == nil {
			res = result.Failure[ReturnResult](result.CodePreconditionFailed,
				"no take record for resource with id %d", resourceID)
			return uow.ErrRollback
		}

		now := time.Now()
		take.ReturnDate = &now
		take.Finished = true
		if err := u.Records.Save(ctx, take); err != nil {
			return err
		}

		ret := ReturnResult{
			Resource:             *resource,
			PreviousVisitorEmail: take.UserEmail,
		}

		queue, err := u.Resources.GetQueue(ctx, resourceID)
		if err != nil {
			return err
		}
		if len(queue) > 0 {
			head := queue[0]
			head.EnqueueDate = nil
			head.TakeDate = &now
			if err := u.Records.Save(ctx, &head); err != nil {
				return err
			}
			ret.NewVisitorEmail = &head.UserEmail
		}

		res = result.Success(ret)
		return nil
	})
	return res, finish(err)
}

// Enqueue appends the visitor to the resource's waitlist. A visitor
// can hold at most one queue entry per resource; the resource row is
// locked so concurrent enqueues by the same visitor yield one entry
// and one Conflict.
func (s *Service) Enqueue(ctx context.Context, resourceID int64, email string) (result.Result[model.Record], error) {
	var res result.Result[model.Record]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.GetForUpdate(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[model.Record](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		check, err := checkVisitor(ctx, u, email)
		if err != nil {
			return err
		}
		if check.IsFailure() {
			res = result.Forward[model.Record](check)
			return uow.ErrRollback
		}

		queue, err := u.Resources.GetQueue(ctx, resourceID)
		if err != nil {
			return err
		}
		for _, entry := range queue {
			if entry.UserEmail == email {
				res = result.Failure[model.Record](result.CodeConflict, "visitor already in queue")
				return uow.ErrRollback
			}
		}

		now := time.Now()
		record := model.Record{
			ResourceID:  resourceID,
			UserEmail:   email,
			EnqueueDate: &now,
		}
		if err := u.Records.Add(ctx, &record); err != nil {
			return err
		}
		res = result.Success(record)
		return nil
	})
	return res, finish(err)
}

// LeaveQueue removes the visitor's queue entry for the resource.
func (s *Service) LeaveQueue(ctx context.Context, resourceID int64, email string) (result.Result[model.Record], error) {
	var res result.Result[model.Record]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		check, err := checkExists(ctx, u, resourceID, email)
		if err != nil {
			return err
		}
		if check.IsFailure() {
			res = result.Forward[model.Record](check)
			return uow.ErrRollback
		}

		record, err := u.Records.GetQueueRecord(ctx, resourceID, email)
		if err != nil {
			return err
		}
		if record == nil {
			res = result.Failure[model.Record](result.CodeNotFound,
				"record for resource_id %d and email %s not found", resourceID, email)
			return uow.ErrRollback
		}
		if err := u.Records.Delete(ctx, record); err != nil {
			return err
		}
		res = result.Success(*record)
		return nil
	})
	return res, finish(err)
}

// GetQueue returns the resource's waitlist, oldest first.
func (s *Service) GetQueue(ctx context.Context, resourceID int64) (result.Result[[]model.Record], error) {
	var res result.Result[[]model.Record]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		resource, err := u.Resources.Get(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			res = result.Failure[[]model.Record](result.CodeNotFound, "resource with id %d not found", resourceID)
			return uow.ErrRollback
		}
		queue, err := u.Resources.GetQueue(ctx, resourceID)
		if err != nil {
			return err
		}
		res = result.Success(queue)
		return nil
	})
	return res, finish(err)
}

// GetRecord returns one record by id.
func (s *Service) GetRecord(ctx context.Context, recordID int64) (result.Result[model.Record], error) {
	var res result.Result[model.Record]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		record, err := u.Records.Get(ctx, recordID)
		if err != nil {
			return err
		}
		if record == nil {
			res = result.Failure[model.Record](result.CodeNotFound, "record with id %d not found", recordID)
			return uow.ErrRollback
		}
		res = result.Success(*record)
		return nil
	})
	return res, finish(err)
}

// UpdateRecord changes the address and agreed return date of an
// existing record.
func (s *Service) UpdateRecord(ctx context.Context, recordID int64, address *string, returnDate *time.Time) (result.Result[model.Record], error) {
	var res result.Result[model.Record]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		record, err := u.Records.Get(ctx, recordID)
		if err != nil {
			return err
		}
		if record == nil {
			res = result.Failure[model.Record](result.CodeNotFound, "record with id %d not found", recordID)
			return uow.ErrRollback
		}
		record.Address = address
		record.ReturnDate = returnDate
		if err := u.Records.Save(ctx, record); err != nil {
			return err
		}
		res = result.Success(*record)
		return nil
	})
	return res, finish(err)
}

// GetAllTaken returns every active loan as a flattened resource view.
func (s *Service) GetAllTaken(ctx context.Context) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		records, err := u.Records.GetAllTaken(ctx)
		if err != nil {
			return err
		}
		infos := make([]ResourceInfo, 0, len(records))
		for i := range records {
			infos = append(infos, NewResourceInfo(&records[i].Resource, &records[i]))
		}
		res = result.Success(infos)
		return nil
	})
	return res, finish(err)
}

// GetExpiring returns the active loans due at or before the end of the
// day daysAhead days from now, for the scheduled reminder job.
func (s *Service) GetExpiring(ctx context.Context, daysAhead int) (result.Result[[]ExpiringRecord], error) {
	var res result.Result[[]ExpiringRecord]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		expiring, err := u.Records.GetExpiring(ctx, daysAhead)
		if err != nil {
			return err
		}
		records := make([]ExpiringRecord, 0, len(expiring))
		for _, e := range expiring {
			records = append(records, ExpiringRecord{Record: e.Record, DaysLeft: e.DaysLeft})
		}
		res = result.Success(records)
		return nil
	})
	return res, finish(err)
}

// DeleteOldFinishedRecords purges finished records older than
// maxAgeDays and reports how many were removed. Running it again right
// away removes nothing and is not an error.
func (s *Service) DeleteOldFinishedRecords(ctx context.Context, maxAgeDays int) (result.Result[int64], error) {
	var res result.Result[int64]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		n, err := u.Records.DeleteFinished(ctx, maxAgeDays)
		if err != nil {
			return err
		}
		res = result.Success(n)
		return nil
	})
	return res, finish(err)
}
