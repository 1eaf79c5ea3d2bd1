// Package daemonerr names the error kinds from spec §7 as sentinel errors,
// so callers can classify a wrapped error with errors.Is while everywhere
// else in the codebase keeps using plain fmt.Errorf("...: %w", err), the
// idiom the teacher uses throughout — this is not a thiserror-style enum,
// just enough structure to tell the event loop how to react.
package daemonerr

import "errors"

var (
	// TransientBus marks a D-Bus call that timed out or returned a
	// protocol error. Logged and abandoned; the process continues.
	TransientBus = errors.New("transient bus error")

	// MalformedMetadata marks a property variant that didn't decode into
	// the shape MPRIS promises (e.g. Metadata wasn't a{sv}, PlaybackStatus
	// wasn't a string). The parser itself never fails on a missing or
	// oddly-typed individual field — it silently treats the field as
	// absent — but the adapter tags the log line when the whole property
	// comes back malformed, via zap.NamedError("kind", MalformedMetadata).
	MalformedMetadata = errors.New("malformed metadata")

	// SinkFailure marks a rejected store write. The episode is lost; the
	// process continues.
	SinkFailure = errors.New("sink failure")

	// ConfigInvalid marks a configuration value outside its validated
	// range, detected before any D-Bus subscription is taken out.
	ConfigInvalid = errors.New("invalid configuration")

	// Fatal marks an unrecoverable startup condition (the session bus is
	// unavailable).
	Fatal = errors.New("fatal startup error")
)
