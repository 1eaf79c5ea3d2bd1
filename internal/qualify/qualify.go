// Package qualify implements the "counts as a play" predicate (spec §4.E).
// ShouldLog is a pure function of a playback.State snapshot and a
// config.TrackingConfig; it touches no registry, no clock other than what
// is passed in, and no sink — see spec §8 property 6.
package qualify

import (
	"time"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/playback"
)

// fourMinuteRule is the absolute played-time floor that qualifies a play
// regardless of the track's duration or played fraction.
const fourMinuteRule = 240 * time.Second

// ShouldLog decides whether the episode captured in state qualifies for
// logging, given `played`, the episode's play time as already computed by
// the caller (typically up to the instant the episode stopped).
func ShouldLog(state playback.State, played time.Duration, cfg config.TrackingConfig) bool {
	if !state.Track.HasTitle() {
		return false
	}
	if state.StartTimestamp.IsZero() {
		return false
	}
	if played < time.Duration(cfg.MinPlaySeconds)*time.Second {
		return false
	}

	durationUnknown := state.Track.DurationUs <= 0
	playedFraction := 0.0
	if !durationUnknown {
		playedFraction = played.Seconds() / (time.Duration(state.Track.DurationUs) * time.Microsecond).Seconds()
	}

	qualifies := durationUnknown || playedFraction >= cfg.MinPlayPercent || played >= fourMinuteRule
	if !qualifies {
		return false
	}

	if cfg.LocalOnly && !state.IsLocal {
		return false
	}

	return true
}
