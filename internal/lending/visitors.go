package lending

import (
	"context"
	"log"

	"device-lending-backend/internal/model"
	"device-lending-backend/internal/result"
	"device-lending-backend/internal/uow"
)

// VisitorService manages the people side of the library: front-end
// authentication, administrative lookup and the per-visitor views of
// loans and queues.
type VisitorService struct {
	uow    *uow.Factory
	admins map[string]struct{}
	emails *EmailRule
}

// NewVisitorService creates the service. admins lists the emails that
// get the admin flag on authentication.
func NewVisitorService(f *uow.Factory, admins []string, emails *EmailRule) *VisitorService {
	adminSet := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		adminSet[a] = struct{}{}
	}
	return &VisitorService{uow: f, admins: adminSet, emails: emails}
}

// Auth inserts or refreshes a visitor on front-end sign-in: chat
// identity fields are attached to the row and the admin flag is
// re-derived from configuration.
func (s *VisitorService) Auth(ctx context.Context, incoming model.Visitor) (result.Result[model.Visitor], error) {
	if !s.emails.Valid(incoming.Email) {
		return result.Failure[model.Visitor](result.CodeValidationFailed,
			"email %s does not match the organizational pattern", incoming.Email), nil
	}

	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		_, isAdmin := s.admins[incoming.Email]

		existing, err := u.Visitors.Get(ctx, incoming.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.ChatID = incoming.ChatID
			existing.UserID = incoming.UserID
			existing.Username = incoming.Username
			existing.FullName = incoming.FullName
			existing.IsAdmin = isAdmin
			if err := u.Visitors.Save(ctx, existing); err != nil {
				return err
			}
			res = result.Success(*existing)
			return nil
		}

		incoming.IsAdmin = isAdmin
		if err := u.Visitors.Add(ctx, &incoming); err != nil {
			return err
		}
		log.Printf("visitor authenticated for the first time: %s", incoming.Email)
		res = result.Success(incoming)
		return nil
	})
	return res, finish(err)
}

// Add registers a visitor explicitly, failing on a duplicate email.
func (s *VisitorService) Add(ctx context.Context, visitor model.Visitor) (result.Result[model.Visitor], error) {
	if !s.emails.Valid(visitor.Email) {
		return result.Failure[model.Visitor](result.CodeValidationFailed,
			"email %s does not match the organizational pattern", visitor.Email), nil
	}

	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		existing, err := u.Visitors.Get(ctx, visitor.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			res = result.Failure[model.Visitor](result.CodeConflict,
				"visitor with email %s already exists", visitor.Email)
			return uow.ErrRollback
		}
		if err := u.Visitors.Add(ctx, &visitor); err != nil {
			return err
		}
		res = result.Success(visitor)
		return nil
	})
	return res, finish(err)
}

// EnsureExists creates a minimal visitor row for an email the system
// has not seen yet. Existing visitors pass through untouched.
func (s *VisitorService) EnsureExists(ctx context.Context, email string) (result.Result[model.Visitor], error) {
	if !s.emails.Valid(email) {
		return result.Failure[model.Visitor](result.CodeValidationFailed,
			"email %s does not match the organizational pattern", email), nil
	}

	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		if err := ensureVisitor(ctx, u, email); err != nil {
			return err
		}
		visitor, err := u.Visitors.Get(ctx, email)
		if err != nil {
			return err
		}
		res = result.Success(*visitor)
		return nil
	})
	return res, finish(err)
}

// Get returns the visitor with the given email.
func (s *VisitorService) Get(ctx context.Context, email string) (result.Result[model.Visitor], error) {
	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitor, err := u.Visitors.Get(ctx, email)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[model.Visitor](result.CodeNotFound, "visitor with email %s not found", email)
			return uow.ErrRollback
		}
		res = result.Success(*visitor)
		return nil
	})
	return res, finish(err)
}

// GetByID returns the visitor with the given internal id.
func (s *VisitorService) GetByID(ctx context.Context, visitorID int64) (result.Result[model.Visitor], error) {
	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitor, err := u.Visitors.GetByID(ctx, visitorID)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[model.Visitor](result.CodeNotFound, "visitor with id %d not found", visitorID)
			return uow.ErrRollback
		}
		res = result.Success(*visitor)
		return nil
	})
	return res, finish(err)
}

// GetByChatID returns the visitor attached to a chat session.
func (s *VisitorService) GetByChatID(ctx context.Context, chatID int64) (result.Result[model.Visitor], error) {
	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitor, err := u.Visitors.GetByChatID(ctx, chatID)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[model.Visitor](result.CodeNotFound, "visitor with chat_id %d not found", chatID)
			return uow.ErrRollback
		}
		res = result.Success(*visitor)
		return nil
	})
	return res, finish(err)
}

// List returns all visitors.
func (s *VisitorService) List(ctx context.Context) (result.Result[[]model.Visitor], error) {
	var res result.Result[[]model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitors, err := u.Visitors.List(ctx)
		if err != nil {
			return err
		}
		res = result.Success(visitors)
		return nil
	})
	return res, finish(err)
}

// Search finds visitors by id, chat id or text key.
func (s *VisitorService) Search(ctx context.Context, key string, limit int) (result.Result[[]model.Visitor], error) {
	var res result.Result[[]model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitors, err := u.Visitors.Search(ctx, key, limit)
		if err != nil {
			return err
		}
		res = result.Success(visitors)
		return nil
	})
	return res, finish(err)
}

// Update changes a visitor's email and/or free-text comment. Nil
// leaves a field untouched.
func (s *VisitorService) Update(ctx context.Context, visitorID int64, email, comment *string) (result.Result[model.Visitor], error) {
	if email != nil && !s.emails.Valid(*email) {
		return result.Failure[model.Visitor](result.CodeValidationFailed,
			"email %s does not match the organizational pattern", *email), nil
	}

	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitor, err := u.Visitors.GetByID(ctx, visitorID)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[model.Visitor](result.CodeNotFound, "visitor with id %d not found", visitorID)
			return uow.ErrRollback
		}
		if email != nil && *email != visitor.Email {
			existing, err := u.Visitors.Get(ctx, *email)
			if err != nil {
				return err
			}
			if existing != nil {
				res = result.Failure[model.Visitor](result.CodeConflict,
					"visitor with email %s already exists", *email)
				return uow.ErrRollback
			}
			visitor.Email = *email
		}
		if comment != nil {
			visitor.Comment = comment
		}
		if err := u.Visitors.Save(ctx, visitor); err != nil {
			return err
		}
		res = result.Success(*visitor)
		return nil
	})
	return res, finish(err)
}

// Delete removes a visitor. Visitors with live loans or queue entries
// cannot be deleted.
func (s *VisitorService) Delete(ctx context.Context, email string) (result.Result[model.Visitor], error) {
	var res result.Result[model.Visitor]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		active, err := u.Visitors.HasActiveRecords(ctx, email)
		if err != nil {
			return err
		}
		if active {
			res = result.Failure[model.Visitor](result.CodePreconditionFailed,
				"visitor %s still holds or queues for resources", email)
			return uow.ErrRollback
		}
		visitor, err := u.Visitors.Delete(ctx, email)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[model.Visitor](result.CodeNotFound, "visitor with email %s not found", email)
			return uow.ErrRollback
		}
		res = result.Success(*visitor)
		return nil
	})
	return res, finish(err)
}

// GetTakenResources returns the flattened views of the resources the
// visitor currently holds.
func (s *VisitorService) GetTakenResources(ctx context.Context, email string) (result.Result[[]ResourceInfo], error) {
	return s.resourceViews(ctx, email, func(ctx context.Context, u *uow.Scope) ([]model.Resource, error) {
		return u.Visitors.GetTakenResources(ctx, email)
	})
}

// GetQueue returns the flattened views of the resources the visitor is
// waiting for.
func (s *VisitorService) GetQueue(ctx context.Context, email string) (result.Result[[]ResourceInfo], error) {
	return s.resourceViews(ctx, email, func(ctx context.Context, u *uow.Scope) ([]model.Resource, error) {
		return u.Visitors.GetQueuedResources(ctx, email)
	})
}

// GetFinishedRecords returns the visitor's loan history as flattened
// views.
func (s *VisitorService) GetFinishedRecords(ctx context.Context, email string) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitor, err := u.Visitors.Get(ctx, email)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[[]ResourceInfo](result.CodeNotFound, "visitor with email %s not found", email)
			return uow.ErrRollback
		}
		records, err := u.Records.GetFinishedByVisitor(ctx, email)
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

func (s *VisitorService) resourceViews(
	ctx context.Context,
	email string,
	fetch func(context.Context, *uow.Scope) ([]model.Resource, error),
) (result.Result[[]ResourceInfo], error) {
	var res result.Result[[]ResourceInfo]
	err := s.uow.Do(ctx, func(u *uow.Scope) error {
		visitor, err := u.Visitors.Get(ctx, email)
		if err != nil {
			return err
		}
		if visitor == nil {
			res = result.Failure[[]ResourceInfo](result.CodeNotFound, "visitor with email %s not found", email)
			return uow.ErrRollback
		}
		resources, err := fetch(ctx, u)
		if err != nil {
			return err
		}
		infos := make([]ResourceInfo, 0, len(resources))
		for i := range resources {
			take, err := u.Resources.GetTake(ctx, resources[i].ID)
			if err != nil {
				return err
			}
			infos = append(infos, NewResourceInfo(&resources[i], take))
		}
		res = result.Success(infos)
		return nil
	})
	return res, finish(err)
}
