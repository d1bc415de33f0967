package components

import (
	"context"

	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/daemon"
)

// SchedulerComponent runs the daily briefing cron.
type SchedulerComponent struct {
	scheduler *briefing.Scheduler
	started   bool
}

func NewSchedulerComponent(scheduler *briefing.Scheduler) *SchedulerComponent {
	return &SchedulerComponent{scheduler: scheduler}
}

func (c *SchedulerComponent) Name() string           { return "scheduler" }
func (c *SchedulerComponent) Dependencies() []string { return []string{"store"} }

func (c *SchedulerComponent) Init(ctx context.Context) error { return nil }

func (c *SchedulerComponent) Start(ctx context.Context) error {
	if err := c.scheduler.Start(); err != nil {
		return err
	}
	c.started = true
	return nil
}

func (c *SchedulerComponent) Stop(ctx context.Context) error {
	if c.started {
		c.scheduler.Stop()
		c.started = false
	}
	return nil
}

func (c *SchedulerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	return &daemon.ComponentHealth{Name: c.Name(), Healthy: c.started}, nil
}
