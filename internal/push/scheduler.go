package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/chorestar/internal/ledger"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/store"
)

// sentRetention is how long dedup records in sent_notifications are kept.
const sentRetention = 7 * 24 * time.Hour

// Scheduler periodically checks for notifications to send.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	chores   *store.ChoreStore
	hour     int
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a notification scheduler that sends the daily chore
// reminder once reminderHour has passed in loc.
func NewScheduler(svc *Service, pushStore *store.PushStore, choreStore *store.ChoreStore, reminderHour int, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		chores:   choreStore,
		hour:     reminderHour,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		interval: 60 * time.Second,
	}
}

// Start begins the scheduler loop. It does nothing when push is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.service.Enabled() {
		s.logger.Info("push disabled, scheduler not started")
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := s.now()
	if _, err := s.checkChoreReminder(now); err != nil {
		s.logger.Error("chore reminder", "error", err)
	}
	if err := s.push.CleanupSent(now.Add(-sentRetention)); err != nil {
		s.logger.Error("cleanup sent notifications", "error", err)
	}
}

// checkChoreReminder sends today's reminder if it is due and has not gone out
// yet. It reports whether a reminder was handled on this call.
func (s *Scheduler) checkChoreReminder(now time.Time) (bool, error) {
	local := now.In(s.loc)
	if local.Hour() < s.hour {
		return false, nil
	}

	refID := "chores-" + local.Format("2006-01-02")
	sent, err := s.push.WasSent(model.NotifTypeChoreReminder, refID)
	if err != nil {
		return false, err
	}
	if sent {
		return false, nil
	}

	open, err := s.chores.CountOpen(ledger.WeekStart(local), ledger.DayOfWeek(local))
	if err != nil {
		return false, err
	}

	if open > 0 {
		body := fmt.Sprintf("%d chores are still open today", open)
		if open == 1 {
			body = "1 chore is still open today"
		}
		payload := Payload{
			Title: "Chore Reminder",
			Body:  body,
			URL:   "/",
			Tag:   "chore-daily",
		}
		if _, err := s.service.Broadcast(payload); err != nil {
			return false, err
		}
	}

	if err := s.push.RecordSent(model.NotifTypeChoreReminder, refID); err != nil {
		return false, err
	}
	return true, nil
}
