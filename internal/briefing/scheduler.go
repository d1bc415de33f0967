package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

// Scheduler triggers one "new"-mode briefing per day at the configured
// wall-clock time. Schedule changes take effect on the next store write,
// no restart needed.
type Scheduler struct {
	store *prefs.Store
	gen   *Generator

	mu       sync.Mutex
	cron     *cron.Cron
	timeSpec string
	timezone string
	stopped  bool
}

func NewScheduler(store *prefs.Store, gen *Generator) *Scheduler {
	return &Scheduler{store: store, gen: gen}
}

// Start applies the current schedule and re-applies it after every
// persisted change.
func (s *Scheduler) Start() error {
	if err := s.apply(s.store.Snapshot().Briefing.Schedule); err != nil {
		return err
	}
	s.store.OnPersist(func(doc prefs.Document) {
		if err := s.apply(doc.Briefing.Schedule); err != nil {
			slog.Error("Briefing reschedule failed", "error", err)
		}
	})
	return nil
}

func (s *Scheduler) apply(schedule prefs.BriefingSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	if schedule.Time == s.timeSpec && schedule.Timezone == s.timezone && s.cron != nil {
		return nil
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return fmt.Errorf("load briefing timezone %q: %w", schedule.Timezone, err)
	}
	spec, err := cronSpec(schedule.Time)
	if err != nil {
		return err
	}

	// The cron location is fixed at construction, so a timezone change
	// means a fresh instance.
	if s.cron != nil {
		s.cron.Stop()
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("schedule briefing: %w", err)
	}
	c.Start()

	s.cron = c
	s.timeSpec = schedule.Time
	s.timezone = schedule.Timezone
	slog.Info("Briefing scheduled", "time", schedule.Time, "timezone", schedule.Timezone)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	outcome, err := s.gen.Generate(ctx, Options{
		Mode:           ModeNew,
		Origin:         "schedule",
		SuppressPrompt: true,
	})
	if err != nil {
		slog.Error("Scheduled briefing failed", "error", err)
		return
	}
	slog.Info("Scheduled briefing ran", "status", outcome.Status, "total", outcome.Counts.Total)
}

// Stop halts the cron loop and waits for a running job to finish. The
// wait happens outside the mutex because a running job's store write can
// re-enter apply.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// cronSpec converts HH:mm into a daily five-field cron expression. The
// time comes from a normalized document, so a malformed value here is an
// internal inconsistency rather than bad input.
func cronSpec(hhmm string) (string, error) {
	if !prefs.ValidScheduleTime(hhmm) {
		return "", errors.Internal(fmt.Sprintf("invalid briefing time %q", hhmm))
	}
	parts := strings.SplitN(hhmm, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
