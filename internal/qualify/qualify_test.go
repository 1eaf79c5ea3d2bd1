package qualify

import (
	"testing"
	"time"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/domain"
	"github.com/tbleher/niandra-go/internal/playback"
)

func baseState() playback.State {
	return playback.State{
		Track:          domain.Track{Title: "Song", DurationUs: 200_000_000}, // 200s
		StartTimestamp: time.Now(),
		IsLocal:        true,
	}
}

func baseConfig() config.TrackingConfig {
	return config.TrackingConfig{
		MinPlaySeconds: 30,
		MinPlayPercent: 0.5,
		LocalOnly:      true,
	}
}

func TestShouldLogRejectsMissingTitle(t *testing.T) {
	s := baseState()
	s.Track.Title = ""
	if ShouldLog(s, 200*time.Second, baseConfig()) {
		t.Error("a track with no title should never qualify")
	}
}

func TestShouldLogRejectsMissingStartTimestamp(t *testing.T) {
	s := baseState()
	s.StartTimestamp = time.Time{}
	if ShouldLog(s, 200*time.Second, baseConfig()) {
		t.Error("a state with no StartTimestamp should never qualify")
	}
}

func TestShouldLogRejectsBelowMinPlaySeconds(t *testing.T) {
	s := baseState()
	if ShouldLog(s, 10*time.Second, baseConfig()) {
		t.Error("played time below min_play_seconds should never qualify")
	}
}

func TestShouldLogUnknownDurationQualifiesAlone(t *testing.T) {
	s := baseState()
	s.Track.DurationUs = 0
	if !ShouldLog(s, 35*time.Second, baseConfig()) {
		t.Error("unknown duration with played >= min_play_seconds should qualify")
	}
}

func TestShouldLogFractionRuleQualifies(t *testing.T) {
	s := baseState() // 200s track
	// 50% of 200s = 100s
	if !ShouldLog(s, 100*time.Second, baseConfig()) {
		t.Error("played fraction >= min_play_percent should qualify")
	}
	if ShouldLog(s, 99*time.Second, baseConfig()) {
		t.Error("played fraction just under min_play_percent should not qualify on its own")
	}
}

func TestShouldLogFourMinuteRuleQualifiesEvenBelowFraction(t *testing.T) {
	s := baseState()
	s.Track.DurationUs = int64(20 * time.Minute / time.Microsecond) // long track, low fraction
	if !ShouldLog(s, 241*time.Second, baseConfig()) {
		t.Error("played >= 240s should qualify regardless of fraction")
	}
}

func TestShouldLogLocalOnlyRejectsRemote(t *testing.T) {
	cfg := baseConfig()
	cfg.LocalOnly = true
	s := baseState()
	s.IsLocal = false
	if ShouldLog(s, 200*time.Second, cfg) {
		t.Error("local_only=true should reject a non-local track")
	}
}

func TestShouldLogLocalOnlyDisabledAllowsRemote(t *testing.T) {
	cfg := baseConfig()
	cfg.LocalOnly = false
	s := baseState()
	s.IsLocal = false
	if !ShouldLog(s, 200*time.Second, cfg) {
		t.Error("local_only=false should allow a non-local, otherwise-qualifying track")
	}
}

// TestShouldLogIsPure verifies repeated evaluation of the same inputs is
// deterministic (no hidden dependence on wall-clock or global state).
func TestShouldLogIsPure(t *testing.T) {
	s := baseState()
	cfg := baseConfig()
	first := ShouldLog(s, 150*time.Second, cfg)
	for i := 0; i < 5; i++ {
		if got := ShouldLog(s, 150*time.Second, cfg); got != first {
			t.Fatalf("ShouldLog is not pure: got %v then %v", first, got)
		}
	}
}
