package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"device-lending-backend/config"
	"device-lending-backend/internal/lending"
)

// Reminder periodically notifies holders of loans that are about to
// expire and purges old finished records.
type Reminder struct {
	cfg     *config.MaintenanceConfig
	service *lending.Service
	pool    *WorkerPool
}

// NewReminder creates the maintenance job runner.
func NewReminder(cfg *config.MaintenanceConfig, service *lending.Service, pool *WorkerPool) *Reminder {
	return &Reminder{cfg: cfg, service: service, pool: pool}
}

// Run starts the maintenance loop.
func (r *Reminder) Run(ctx context.Context) {
	if !r.cfg.Enabled {
		log.Println("Maintenance jobs are disabled. Not starting.")
		return
	}
	log.Println("Starting maintenance jobs...")

	r.RemindOnce(ctx)
	r.PurgeOnce(ctx)

	remindTimer := time.NewTimer(r.cfg.ReminderInterval)
	defer remindTimer.Stop()
	purgeTimer := time.NewTimer(r.cfg.PurgeInterval)
	defer purgeTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Maintenance jobs shutting down.")
			return
		case <-remindTimer.C:
			r.RemindOnce(ctx)
			remindTimer.Reset(r.cfg.ReminderInterval)
		case <-purgeTimer.C:
			r.PurgeOnce(ctx)
			purgeTimer.Reset(r.cfg.PurgeInterval)
		}
	}
}

// RemindOnce runs one reminder cycle: every active loan due at or
// before the end of the look-ahead window produces one notification
// job for its holder.
func (r *Reminder) RemindOnce(ctx context.Context) {
	res, err := r.service.GetExpiring(ctx, r.cfg.ExpireDaysAhead)
	if err != nil {
		log.Printf("Error fetching expiring loans: %v", err)
		return
	}
	expiring := res.Unwrap()
	if len(expiring) == 0 {
		return
	}

	log.Printf("Dispatching %d return reminders", len(expiring))
	for _, e := range expiring {
		r.pool.Dispatch(Job{
			Email:   e.Record.UserEmail,
			Message: reminderMessage(e),
		})
	}
}

// PurgeOnce removes finished records older than the retention window.
func (r *Reminder) PurgeOnce(ctx context.Context) {
	res, err := r.service.DeleteOldFinishedRecords(ctx, r.cfg.PurgeMaxAgeDays)
	if err != nil {
		log.Printf("Error purging finished records: %v", err)
		return
	}
	if n := res.Unwrap(); n > 0 {
		log.Printf("Purged %d finished records older than %d days", n, r.cfg.PurgeMaxAgeDays)
	}
}

func reminderMessage(e lending.ExpiringRecord) string {
	name := e.Record.Resource.Name
	switch {
	case e.DaysLeft < 0:
		return fmt.Sprintf("Return of %s is overdue", name)
	case e.DaysLeft == 0:
		return fmt.Sprintf("Return of %s is expected today", name)
	default:
		return fmt.Sprintf("Return of %s is expected in %d day(s)", name, e.DaysLeft)
	}
}
