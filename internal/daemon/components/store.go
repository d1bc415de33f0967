// Package components adapts the daemon's moving parts to the Component
// lifecycle.
package components

import (
	"context"

	"github.com/harunnryd/trendsniffer/internal/daemon"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

// StoreComponent owns the preference store's lifetime: the store is opened
// before the daemon assembles (everything depends on it) and closed last.
type StoreComponent struct {
	store *prefs.Store
}

func NewStoreComponent(store *prefs.Store) *StoreComponent {
	return &StoreComponent{store: store}
}

func (c *StoreComponent) Name() string           { return "store" }
func (c *StoreComponent) Dependencies() []string { return nil }

func (c *StoreComponent) Init(ctx context.Context) error  { return nil }
func (c *StoreComponent) Start(ctx context.Context) error { return nil }

func (c *StoreComponent) Stop(ctx context.Context) error {
	return c.store.Close()
}

func (c *StoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	return &daemon.ComponentHealth{Name: c.Name(), Healthy: true}, nil
}
