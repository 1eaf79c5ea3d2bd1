package domain

import "context"

// BusAdapter defines the interface for monitoring MPRIS players over D-Bus.
type BusAdapter interface {
	// Start begins monitoring for player events.
	// It should block until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops the adapter.
	Stop(ctx context.Context) error

	// Events returns a read-only channel that emits Event values as
	// players appear, disappear, and change playback state.
	Events() <-chan Event
}

// Sink defines the interface for persisting a qualifying play. The core
// never reads back from a Sink; ranking and statistics are a separate
// query-layer concern.
type Sink interface {
	Append(ctx context.Context, record PlayRecord) error
}

// ContextProber defines the interface for the best-effort external probes
// that make up a ListeningContext (focused window, screen state, power
// state). A failed or timed-out probe returns ok=false, never an error.
type ContextProber interface {
	ActiveWindow(ctx context.Context) (value string, ok bool)
	ScreenOn(ctx context.Context) (value bool, ok bool)
	OnBattery(ctx context.Context) (value bool, ok bool)
}
