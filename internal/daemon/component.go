// Package daemon runs the long-lived process: components are registered,
// initialized in dependency order, started, health-checked and shut down
// in reverse.
package daemon

import (
	"context"
)

type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

// ComponentHealth is one component's answer to a health probe.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Component is a unit of the daemon lifecycle: the preference store, the
// briefing scheduler, the HTTP server. Dependencies name other components
// that must initialize first.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
