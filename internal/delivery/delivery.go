// Package delivery sends digest text to outbound channels. Adapters that
// are not configured report so instead of erroring, which lets the caller
// fall back to in-app delivery.
package delivery

import "context"

// Deliverer is an outbound message channel.
type Deliverer interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, text string) error
}

// Nop is the disabled adapter.
type Nop struct{}

func (Nop) Name() string                           { return "nop" }
func (Nop) Configured() bool                       { return false }
func (Nop) Send(_ context.Context, _ string) error { return nil }
