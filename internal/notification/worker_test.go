package notification

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"device-lending-backend/internal/lending"
	"device-lending-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	// Dispatch a job
	wp.Dispatch(Job{Email: "alice@example.org", Message: "hello"})

	// Check if the job is in the channel
	select {
	case job := <-wp.jobs:
		assert.Equal(t, "alice@example.org", job.Email)
		assert.Equal(t, "hello", job.Message)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	// --- Test Case: One subscription found, notification sent ---
	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		subscription := model.PushSubscription{
			Endpoint:  "https://example.com/push",
			P256DH:    "test_p256dh",
			Auth:      "test_auth",
			UserEmail: "alice@example.org",
		}

		// Set up the mock sender
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "Return of Oscilloscope is expected today", string(payload))
				wg.Done()
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       ioutil.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		// Mock database query
		mock.ExpectQuery(`SELECT .* FROM "push_subscriptions" WHERE user_email = \$1`).
			WithArgs("alice@example.org").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_email", "created_at"}).
				AddRow(subscription.Endpoint, subscription.P256DH, subscription.Auth, subscription.UserEmail, time.Now()))

		wp.Dispatch(Job{Email: "alice@example.org", Message: "Return of Oscilloscope is expected today"})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// --- Test Case: Subscription expired, should be deleted ---
	t.Run("deletes expired subscription", func(t *testing.T) {
		subscription := model.PushSubscription{
			Endpoint:  "https://example.com/expired",
			P256DH:    "test_p256dh_expired",
			Auth:      "test_auth_expired",
			UserEmail: "bob@example.org",
		}

		// Set up the mock sender to return a 410 Gone status
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       ioutil.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectQuery(`SELECT .* FROM "push_subscriptions" WHERE user_email = \$1`).
			WithArgs("bob@example.org").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_email", "created_at"}).
				AddRow(subscription.Endpoint, subscription.P256DH, subscription.Auth, subscription.UserEmail, time.Now()))

		// Expect the delete operation
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs(subscription.Endpoint).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(Job{Email: "bob@example.org", Message: "Return of Multimeter is overdue"})

		// A short sleep to allow the worker to process the job
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReminderMessage(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{-1, "Return of Oscilloscope is overdue"},
		{0, "Return of Oscilloscope is expected today"},
		{3, "Return of Oscilloscope is expected in 3 day(s)"},
	}
	for _, c := range cases {
		e := lending.ExpiringRecord{DaysLeft: c.days}
		e.Record.Resource.Name = "Oscilloscope"
		assert.Equal(t, c.want, reminderMessage(e))
	}
}
