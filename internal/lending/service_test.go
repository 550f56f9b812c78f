package lending

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"device-lending-backend/internal/db"
	"device-lending-backend/internal/model"
	"device-lending-backend/internal/result"
	"device-lending-backend/internal/uow"
)

const testSearchMaxID = 10000

type fixture struct {
	db         *gorm.DB
	factory    *uow.Factory
	engine     *Service
	resources  *ResourceService
	visitors   *VisitorService
	categories *CategoryService
}

func newFixture(t *testing.T) *fixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	factory := uow.NewFactory(gormDB)
	rule, err := NewEmailRule(`^[a-z0-9.]+@example\.org$`)
	require.NoError(t, err)

	return &fixture{
		db:         gormDB,
		factory:    factory,
		engine:     NewService(factory),
		resources:  NewResourceService(factory, testSearchMaxID),
		visitors:   NewVisitorService(factory, []string{"admin@example.org"}, rule),
		categories: NewCategoryService(factory),
	}
}

func (f *fixture) seedResource(t *testing.T, id int64, name string) {
	res, err := f.resources.AddWithRecord(context.Background(), model.Resource{
		ID: id, Name: name, CategoryName: "Lab", VendorCode: fmt.Sprintf("VC-%d", id),
	}, nil)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), res.String())
}

func (f *fixture) seedVisitor(t *testing.T, email string) {
	res, err := f.visitors.EnsureExists(context.Background(), email)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), res.String())
}

func TestTakeResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedVisitor(t, "alice@example.org")
	f.seedVisitor(t, "bob@example.org")

	t.Run("take a free resource", func(t *testing.T) {
		res, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.String())
		info := res.Unwrap()
		require.NotNil(t, info.UserEmail)
		assert.Equal(t, "alice@example.org", *info.UserEmail)
		assert.NotNil(t, info.TakeDate)
	})

	t.Run("second take conflicts", func(t *testing.T) {
		res, err := f.engine.TakeResource(ctx, 1, "bob@example.org", nil, nil)
		require.NoError(t, err)
		require.True(t, res.IsFailure())
		assert.Equal(t, result.CodeConflict, res.Code())
	})

	t.Run("unknown resource", func(t *testing.T) {
		res, err := f.engine.TakeResource(ctx, 99, "alice@example.org", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, result.CodeNotFound, res.Code())
	})

	t.Run("unknown visitor", func(t *testing.T) {
		res, err := f.engine.TakeResource(ctx, 1, "ghost@example.org", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, result.CodeNotFound, res.Code())
	})
}

func TestReturnPromotesQueueHead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	for _, email := range []string{"alice@example.org", "bob@example.org", "carol@example.org"} {
		f.seedVisitor(t, email)
	}

	take, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
	require.NoError(t, err)
	require.True(t, take.IsSuccess())

	for _, email := range []string{"bob@example.org", "carol@example.org"} {
		enq, err := f.engine.Enqueue(ctx, 1, email)
		require.NoError(t, err)
		require.True(t, enq.IsSuccess(), enq.String())
		// Distinct enqueue timestamps keep the ordering unambiguous.
		time.Sleep(2 * time.Millisecond)
	}

	ret, err := f.engine.ReturnResource(ctx, 1)
	require.NoError(t, err)
	require.True(t, ret.IsSuccess(), ret.String())
	outcome := ret.Unwrap()
	assert.Equal(t, "alice@example.org", outcome.PreviousVisitorEmail)
	require.NotNil(t, outcome.NewVisitorEmail)
	assert.Equal(t, "bob@example.org", *outcome.NewVisitorEmail, "the oldest queue entry wins")

	// The promoted record is now the active loan, not a queue entry.
	takeRec, err := f.engine.GetAvailableAction(ctx, 1, "bob@example.org")
	require.NoError(t, err)
	assert.Equal(t, ActionReturn, takeRec.Unwrap())

	queue, err := f.engine.GetQueue(ctx, 1)
	require.NoError(t, err)
	entries := queue.Unwrap()
	require.Len(t, entries, 1, "exactly one entry was promoted")
	assert.Equal(t, "carol@example.org", entries[0].UserEmail)

	// Second return promotes carol; third return leaves the resource free.
	ret, err = f.engine.ReturnResource(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, ret.Unwrap().NewVisitorEmail)
	assert.Equal(t, "carol@example.org", *ret.Unwrap().NewVisitorEmail)

	ret, err = f.engine.ReturnResource(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, ret.Unwrap().NewVisitorEmail)

	action, err := f.engine.GetAvailableAction(ctx, 1, "alice@example.org")
	require.NoError(t, err)
	assert.Equal(t, ActionTake, action.Unwrap())
}

func TestReturnWithoutActiveLoan(t *testing.T) {
	f := newFixture(t)
	f.seedResource(t, 1, "Oscilloscope")

	res, err := f.engine.ReturnResource(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.Equal(t, result.CodePreconditionFailed, res.Code())
}

func TestEnqueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedVisitor(t, "alice@example.org")
	f.seedVisitor(t, "bob@example.org")

	_, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
	require.NoError(t, err)

	res, err := f.engine.Enqueue(ctx, 1, "bob@example.org")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.True(t, res.Unwrap().IsQueue())

	t.Run("double enqueue conflicts", func(t *testing.T) {
		res, err := f.engine.Enqueue(ctx, 1, "bob@example.org")
		require.NoError(t, err)
		assert.Equal(t, result.CodeConflict, res.Code())
	})

	t.Run("leave queue", func(t *testing.T) {
		res, err := f.engine.LeaveQueue(ctx, 1, "bob@example.org")
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.String())

		queue, err := f.engine.GetQueue(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, queue.Unwrap())
	})

	t.Run("leave without entry is not found", func(t *testing.T) {
		res, err := f.engine.LeaveQueue(ctx, 1, "bob@example.org")
		require.NoError(t, err)
		assert.Equal(t, result.CodeNotFound, res.Code())
	})
}

func TestGetAvailableAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedVisitor(t, "alice@example.org")
	f.seedVisitor(t, "bob@example.org")

	expect := func(email string, want Action) {
		t.Helper()
		res, err := f.engine.GetAvailableAction(ctx, 1, email)
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.String())
		assert.Equal(t, want, res.Unwrap())
	}

	expect("alice@example.org", ActionTake)

	_, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
	require.NoError(t, err)
	expect("alice@example.org", ActionReturn)
	expect("bob@example.org", ActionQueue)

	_, err = f.engine.Enqueue(ctx, 1, "bob@example.org")
	require.NoError(t, err)
	expect("bob@example.org", ActionLeave)
}

func TestBatchAddRollsBackOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")

	batch := []ResourceWithRecord{
		{Resource: model.Resource{ID: 2, Name: "Multimeter", CategoryName: "Lab", VendorCode: "MM-1"}},
		{Resource: model.Resource{ID: 1, Name: "Duplicate", CategoryName: "Lab", VendorCode: "DUP-1"}},
	}
	res, err := f.resources.AddManyWithRecords(ctx, batch)
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.Equal(t, result.CodeConflict, res.Code())

	// The valid first entry must not survive the failed batch.
	got, err := f.resources.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, result.CodeNotFound, got.Code())
}

func TestBatchAddRejectsInternalDuplicates(t *testing.T) {
	f := newFixture(t)

	batch := []ResourceWithRecord{
		{Resource: model.Resource{ID: 1, Name: "A", CategoryName: "Lab", VendorCode: "X-1"}},
		{Resource: model.Resource{ID: 1, Name: "B", CategoryName: "Lab", VendorCode: "X-2"}},
	}
	res, err := f.resources.AddManyWithRecords(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.Equal(t, result.CodeValidationFailed, res.Code())
}

func TestBatchAddRejectsDuplicateVendorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch := []ResourceWithRecord{
		{Resource: model.Resource{ID: 1, Name: "A", CategoryName: "Lab", VendorCode: "SAME-1"}},
		{Resource: model.Resource{ID: 2, Name: "B", CategoryName: "Lab", VendorCode: "SAME-1"}},
	}
	res, err := f.resources.AddManyWithRecords(ctx, batch)
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.Equal(t, result.CodeValidationFailed, res.Code())
	assert.Contains(t, res.Message(), "SAME-1")

	// Neither entry may survive the rejected batch.
	for _, id := range []int64{1, 2} {
		got, err := f.resources.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, result.CodeNotFound, got.Code())
	}
}

func TestBatchAddWithRecordCreatesVisitorAndLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	batch := []ResourceWithRecord{
		{
			Resource: model.Resource{ID: 1, Name: "Oscilloscope", CategoryName: "Lab", VendorCode: "OSC-1"},
			TakeRecord: &model.Record{
				ResourceID: 1, UserEmail: "new.holder@example.org", TakeDate: &now,
			},
		},
	}
	res, err := f.resources.AddManyWithRecords(ctx, batch)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), res.String())

	// The unseen holder was created on the fly and owns the loan.
	visitor, err := f.visitors.Get(ctx, "new.holder@example.org")
	require.NoError(t, err)
	require.True(t, visitor.IsSuccess())

	info, err := f.resources.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, info.Unwrap().UserEmail)
	assert.Equal(t, "new.holder@example.org", *info.Unwrap().UserEmail)

	// The category named by the import exists as well.
	category, err := f.categories.Get(ctx, "Lab")
	require.NoError(t, err)
	assert.True(t, category.IsSuccess())
}

func TestBatchAddRecordResourceMismatch(t *testing.T) {
	f := newFixture(t)

	now := time.Now()
	batch := []ResourceWithRecord{
		{
			Resource: model.Resource{ID: 1, Name: "Oscilloscope", CategoryName: "Lab", VendorCode: "OSC-1"},
			TakeRecord: &model.Record{
				ResourceID: 5, UserEmail: "a@example.org", TakeDate: &now,
			},
		},
	}
	res, err := f.resources.AddManyWithRecords(context.Background(), batch)
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.Equal(t, result.CodePreconditionFailed, res.Code())
}

func TestUpdateField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedResource(t, 2, "Multimeter")

	t.Run("rename", func(t *testing.T) {
		res, err := f.resources.UpdateField(ctx, 1, FieldName, "Spectrum Analyzer")
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.String())
		assert.Equal(t, "Spectrum Analyzer", res.Unwrap().Name)
	})

	t.Run("vendor code collision", func(t *testing.T) {
		res, err := f.resources.UpdateField(ctx, 1, FieldVendorCode, "VC-2")
		require.NoError(t, err)
		assert.Equal(t, result.CodeConflict, res.Code())
	})

	t.Run("empty required field", func(t *testing.T) {
		res, err := f.resources.UpdateField(ctx, 1, FieldName, "")
		require.NoError(t, err)
		assert.Equal(t, result.CodeValidationFailed, res.Code())
	})

	t.Run("unknown resource", func(t *testing.T) {
		res, err := f.resources.UpdateField(ctx, 42, FieldName, "x")
		require.NoError(t, err)
		assert.Equal(t, result.CodeNotFound, res.Code())
	})
}

func TestDeleteResourceGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedResource(t, 2, "Multimeter")
	f.seedVisitor(t, "alice@example.org")

	_, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
	require.NoError(t, err)

	res, err := f.resources.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, result.CodePreconditionFailed, res.Code(), "a taken resource cannot be deleted")

	res, err = f.resources.Delete(ctx, 2)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	res, err = f.resources.Delete(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, result.CodeNotFound, res.Code())

	freed, err := f.resources.DeleteAllFree(ctx)
	require.NoError(t, err)
	assert.Empty(t, freed.Unwrap(), "only the taken resource remains and it is skipped")
}

func TestVisitorLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("auth creates and flags admins", func(t *testing.T) {
		chatID := int64(42)
		res, err := f.visitors.Auth(ctx, model.Visitor{Email: "admin@example.org", ChatID: &chatID})
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.String())
		assert.True(t, res.Unwrap().IsAdmin)

		// Re-auth refreshes the chat identity instead of duplicating.
		newChat := int64(43)
		res, err = f.visitors.Auth(ctx, model.Visitor{Email: "admin@example.org", ChatID: &newChat})
		require.NoError(t, err)
		require.True(t, res.IsSuccess())
		require.NotNil(t, res.Unwrap().ChatID)
		assert.Equal(t, int64(43), *res.Unwrap().ChatID)

		all, err := f.visitors.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all.Unwrap(), 1)
	})

	t.Run("auth rejects off-domain email", func(t *testing.T) {
		res, err := f.visitors.Auth(ctx, model.Visitor{Email: "outsider@gmail.com"})
		require.NoError(t, err)
		assert.Equal(t, result.CodeValidationFailed, res.Code())
	})

	t.Run("delete is guarded by active records", func(t *testing.T) {
		f.seedResource(t, 1, "Oscilloscope")
		f.seedVisitor(t, "bob@example.org")
		_, err := f.engine.TakeResource(ctx, 1, "bob@example.org", nil, nil)
		require.NoError(t, err)

		res, err := f.visitors.Delete(ctx, "bob@example.org")
		require.NoError(t, err)
		assert.Equal(t, result.CodePreconditionFailed, res.Code())

		ret, err := f.engine.ReturnResource(ctx, 1)
		require.NoError(t, err)
		require.True(t, ret.IsSuccess())

		res, err = f.visitors.Delete(ctx, "bob@example.org")
		require.NoError(t, err)
		assert.True(t, res.IsSuccess(), "finished history does not block deletion")
	})
}

func TestVisitorLookupAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chatID := int64(555)
	name := "Alice Liddell"
	auth, err := f.visitors.Auth(ctx, model.Visitor{Email: "alice@example.org", ChatID: &chatID, FullName: &name})
	require.NoError(t, err)
	require.True(t, auth.IsSuccess())
	id := auth.Unwrap().ID

	byID, err := f.visitors.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", byID.Unwrap().Email)

	byChat, err := f.visitors.GetByChatID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", byChat.Unwrap().Email)

	missing, err := f.visitors.GetByChatID(ctx, 556)
	require.NoError(t, err)
	assert.Equal(t, result.CodeNotFound, missing.Code())

	found, err := f.visitors.Search(ctx, "liddell", 10)
	require.NoError(t, err)
	require.Len(t, found.Unwrap(), 1)

	newEmail := "alice.l@example.org"
	comment := "lab assistant"
	updated, err := f.visitors.Update(ctx, id, &newEmail, &comment)
	require.NoError(t, err)
	require.True(t, updated.IsSuccess(), updated.String())
	assert.Equal(t, newEmail, updated.Unwrap().Email)

	bad := "alice@gmail.com"
	rejected, err := f.visitors.Update(ctx, id, &bad, nil)
	require.NoError(t, err)
	assert.Equal(t, result.CodeValidationFailed, rejected.Code())
}

func TestVisitorViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedResource(t, 2, "Multimeter")
	f.seedVisitor(t, "alice@example.org")
	f.seedVisitor(t, "bob@example.org")

	_, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
	require.NoError(t, err)
	_, err = f.engine.TakeResource(ctx, 2, "bob@example.org", nil, nil)
	require.NoError(t, err)
	_, err = f.engine.Enqueue(ctx, 2, "alice@example.org")
	require.NoError(t, err)

	taken, err := f.visitors.GetTakenResources(ctx, "alice@example.org")
	require.NoError(t, err)
	require.Len(t, taken.Unwrap(), 1)
	assert.Equal(t, int64(1), taken.Unwrap()[0].ID)

	queued, err := f.visitors.GetQueue(ctx, "alice@example.org")
	require.NoError(t, err)
	require.Len(t, queued.Unwrap(), 1)
	assert.Equal(t, int64(2), queued.Unwrap()[0].ID)

	// Return resource 1 and the loan moves into alice's history.
	_, err = f.engine.ReturnResource(ctx, 1)
	require.NoError(t, err)

	history, err := f.visitors.GetFinishedRecords(ctx, "alice@example.org")
	require.NoError(t, err)
	require.Len(t, history.Unwrap(), 1)
	assert.Equal(t, int64(1), history.Unwrap()[0].ID)

	missing, err := f.visitors.GetTakenResources(ctx, "ghost@example.org")
	require.NoError(t, err)
	assert.Equal(t, result.CodeNotFound, missing.Code())
}

func TestExpiringAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedResource(t, 2, "Multimeter")
	f.seedVisitor(t, "alice@example.org")

	today := time.Now()
	_, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, &today)
	require.NoError(t, err)
	nextWeek := time.Now().AddDate(0, 0, 7)
	_, err = f.engine.TakeResource(ctx, 2, "alice@example.org", nil, &nextWeek)
	require.NoError(t, err)

	expiring, err := f.engine.GetExpiring(ctx, 1)
	require.NoError(t, err)
	records := expiring.Unwrap()
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].Record.ResourceID)
	assert.Equal(t, 0, records[0].DaysLeft)
	assert.Equal(t, "Oscilloscope", records[0].Record.Resource.Name)

	// Finish the loan and age it past the retention window.
	ret, err := f.engine.ReturnResource(ctx, 1)
	require.NoError(t, err)
	require.True(t, ret.IsSuccess())
	old := time.Now().AddDate(-1, 0, -1)
	require.NoError(t, f.db.Model(&model.Record{}).
		Where("resource_id = ? AND finished", 1).
		Update("return_date", old).Error)

	purged, err := f.engine.DeleteOldFinishedRecords(ctx, 365)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged.Unwrap())

	purged, err = f.engine.DeleteOldFinishedRecords(ctx, 365)
	require.NoError(t, err)
	assert.Zero(t, purged.Unwrap(), "purge is idempotent")
}

func TestUpdateRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedResource(t, 1, "Oscilloscope")
	f.seedVisitor(t, "alice@example.org")

	take, err := f.engine.TakeResource(ctx, 1, "alice@example.org", nil, nil)
	require.NoError(t, err)
	require.True(t, take.IsSuccess())

	var rec model.Record
	require.NoError(t, f.db.First(&rec, "resource_id = ?", 1).Error)

	address := "Room 214"
	due := time.Now().AddDate(0, 0, 14)
	res, err := f.engine.UpdateRecord(ctx, rec.ID, &address, &due)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), res.String())
	require.NotNil(t, res.Unwrap().Address)
	assert.Equal(t, "Room 214", *res.Unwrap().Address)
	require.NotNil(t, res.Unwrap().ReturnDate)

	missing, err := f.engine.UpdateRecord(ctx, 9999, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, result.CodeNotFound, missing.Code())
}

func TestCategoryService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.categories.Add(ctx, "Lab")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	dup, err := f.categories.Add(ctx, "Lab")
	require.NoError(t, err)
	assert.Equal(t, result.CodeConflict, dup.Code())

	require.NoError(t, f.categories.Seed(ctx, []string{"Lab", "Office", "Field"}))
	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all.Unwrap(), 3, "seeding skips existing names")

	gone, err := f.categories.Delete(ctx, "Field")
	require.NoError(t, err)
	require.True(t, gone.IsSuccess())

	missing, err := f.categories.Get(ctx, "Field")
	require.NoError(t, err)
	assert.Equal(t, result.CodeNotFound, missing.Code())
}
