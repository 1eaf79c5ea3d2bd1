// Package playback implements the per-player playback state machine (spec
// §4.D): the Idle/Playing/Paused lifecycle, wall-clock play-time
// measurement, and seek accounting.
package playback

import (
	"strings"
	"time"

	"github.com/tbleher/niandra-go/internal/domain"
)

const (
	// introStartThreshold is the position below which a seek is
	// considered to originate from "the intro" of a track.
	introStartThreshold = 5 * time.Second
	// introSkipThreshold is the position a seek must land past, coming
	// from below introStartThreshold, to count as skipping the intro.
	introSkipThreshold = 15 * time.Second
)

// State is the mutable episode-in-progress for one player. It is owned by
// the Registry and must only be mutated while the Registry's lock is held;
// qualification and logging operate on a cloned snapshot taken under that
// same lock (see Registry.Transition).
type State struct {
	Track domain.Track

	IsPlaying       bool
	StartTime       time.Time // monotonic-ish wall clock; zero when not playing
	StartTimestamp  time.Time // wall-clock at episode start, for the store
	PlayedMs        int64     // accumulated play time for the current episode

	IsLocal bool

	SeekCount      uint32
	SeekForwardMs  int64
	SeekBackwardMs int64
	IntroSkipped   bool
	LastPositionUs int64

	AppVolume         float64
	AppVolumeKnown    bool
	SystemVolume      float64
	SystemVolumeKnown bool
}

// Clone returns a value copy. State has no pointer/slice fields, so a plain
// struct copy is a full deep copy; this exists to make the "clone under
// lock, release, then use" discipline explicit at call sites.
func (s *State) Clone() State {
	return *s
}

// StartPlaying transitions into Playing, recording the start instants and
// beginning a fresh episode (PlayedMs starts again from zero). It is a
// no-op if already playing: the spec only fires a Playing event on a
// false->true edge.
func (s *State) StartPlaying(now time.Time) {
	if s.IsPlaying {
		return
	}
	s.PlayedMs = 0
	s.IsPlaying = true
	s.StartTime = now
	s.StartTimestamp = now
}

// StopPlaying folds the elapsed wall-clock time since StartTime into
// PlayedMs and clears the playing flag. Calling it while not playing is a
// no-op.
func (s *State) StopPlaying(now time.Time) {
	if !s.IsPlaying {
		return
	}
	s.PlayedMs += now.Sub(s.StartTime).Milliseconds()
	s.IsPlaying = false
	s.StartTime = time.Time{}
}

// PlayedDuration returns the played time as of now: PlayedMs plus, if
// currently playing, the time elapsed since StartTime.
func (s *State) PlayedDuration(now time.Time) time.Duration {
	d := time.Duration(s.PlayedMs) * time.Millisecond
	if s.IsPlaying {
		d += now.Sub(s.StartTime)
	}
	return d
}

// ResetForNewTrack replaces the current track and resets everything scoped
// to one episode: seek counters, played time, and the playing clock (a
// TrackChanged always starts a fresh episode per spec §4.D).
func (s *State) ResetForNewTrack(track domain.Track, isLocal bool, now time.Time) {
	s.Track = track
	s.IsLocal = isLocal
	s.PlayedMs = 0
	s.SeekCount = 0
	s.SeekForwardMs = 0
	s.SeekBackwardMs = 0
	s.IntroSkipped = false
	s.LastPositionUs = 0
	s.IsPlaying = false
	s.StartTime = time.Time{}
	s.StartPlaying(now)
}

// OnSeeked updates seek accounting for a new reported position. Direction
// is relative to LastPositionUs; the intro-skip flag latches true once set,
// it is never cleared within an episode.
func (s *State) OnSeeked(newPositionUs int64) {
	delta := newPositionUs - s.LastPositionUs
	s.SeekCount++
	if delta > 0 {
		s.SeekForwardMs += delta / 1000
	} else {
		s.SeekBackwardMs += -delta / 1000
	}

	oldUs := s.LastPositionUs
	if time.Duration(oldUs)*time.Microsecond < introStartThreshold &&
		time.Duration(newPositionUs)*time.Microsecond > introSkipThreshold {
		s.IntroSkipped = true
	}

	s.LastPositionUs = newPositionUs
}

// UpdatePosition records a new position without touching seek counters —
// used when the track_seeks config option is disabled (spec §6).
func (s *State) UpdatePosition(newPositionUs int64) {
	s.LastPositionUs = newPositionUs
}

// EffectiveVolume combines app-side and system-side volume samples: the
// product when both are known, whichever is known when only one is, else
// unknown.
func (s *State) EffectiveVolume() (value float64, known bool) {
	switch {
	case s.AppVolumeKnown && s.SystemVolumeKnown:
		return s.AppVolume * s.SystemVolume, true
	case s.AppVolumeKnown:
		return s.AppVolume, true
	case s.SystemVolumeKnown:
		return s.SystemVolume, true
	default:
		return 0, false
	}
}

// IsLocalSource classifies a track's source as local or remote (spec
// §4.B). localOnlyPlayers is checked first against the player's well-known
// name; failing that, the URL scheme decides.
func IsLocalSource(track domain.Track, wellKnownName string, localOnlyPlayers []string) bool {
	for _, substr := range localOnlyPlayers {
		if substr != "" && strings.Contains(wellKnownName, substr) {
			return true
		}
	}

	url := track.FilePath
	switch {
	case strings.HasPrefix(url, "file://"), strings.HasPrefix(url, "/"):
		return true
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"),
		strings.HasPrefix(url, "spotify:"), strings.HasPrefix(url, "deezer:"), strings.HasPrefix(url, "tidal:"):
		return false
	default:
		return false
	}
}
