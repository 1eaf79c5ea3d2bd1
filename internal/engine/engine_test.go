package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/domain"
	"github.com/tbleher/niandra-go/internal/playback"
	"github.com/tbleher/niandra-go/internal/registry"
)

// fakeAdapter is a domain.BusAdapter double driven entirely by the test:
// Start just blocks until ctx is cancelled, events are pushed directly onto
// the channel the test holds a reference to.
type fakeAdapter struct {
	events chan domain.Event
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{events: make(chan domain.Event, 16)}
}

func (f *fakeAdapter) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeAdapter) Stop(ctx context.Context) error {
	close(f.events)
	return nil
}

func (f *fakeAdapter) Events() <-chan domain.Event { return f.events }

// fakeSink records every appended PlayRecord.
type fakeSink struct {
	mu      sync.Mutex
	records []domain.PlayRecord
}

func (s *fakeSink) Append(ctx context.Context, r domain.PlayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *fakeSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *fakeSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Title
	}
	return out
}

func testConfig() config.TrackingConfig {
	return config.TrackingConfig{
		MinPlaySeconds:     0,
		MinPlayPercent:     0.5,
		LocalOnly:          false,
		TrackSeeks:         true,
		TrackContext:       false,
		IdleTimeoutSeconds: 30,
	}
}

func newTestEngine(sink *fakeSink) (*Engine, *registry.Registry) {
	reg := registry.New()
	adapter := newFakeAdapter()
	e := New(zap.NewNop(), testConfig(), adapter, reg, sink, nil)
	return e, reg
}

func TestHandlePlayerAppearedAddsToRegistry(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	e.handle(context.Background(), domain.Event{
		Kind:   domain.EventPlayerAppeared,
		Player: "org.mpris.MediaPlayer2.vlc",
		Unique: ":1.1",
	})

	if !reg.Has(":1.1") {
		t.Error("PlayerAppeared should register the player under its unique name")
	}
}

func TestHandleTrackChangedLogsPriorEpisode(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "First Song"},
		StartTimestamp: time.Now(),
		PlayedMs:       60_000,
		IsPlaying:      true,
	})

	e.handle(context.Background(), domain.Event{
		Kind:   domain.EventTrackChanged,
		Player: ":1.1",
		Track:  domain.Track{Title: "Second Song"},
	})

	if sink.len() != 1 {
		t.Fatalf("sink.len() = %d, want 1 (the completed first episode)", sink.len())
	}
	if got := sink.titles()[0]; got != "First Song" {
		t.Errorf("logged title = %q, want %q", got, "First Song")
	}
}

func TestHandleTrackChangedFirstTrackNeverLogsEmptyPrior(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{})

	e.handle(context.Background(), domain.Event{
		Kind:   domain.EventTrackChanged,
		Player: ":1.1",
		Track:  domain.Track{Title: "First Song"},
	})

	if sink.len() != 0 {
		t.Errorf("a brand new player's first TrackChanged must not qualify as completing a prior episode, got %d records", sink.len())
	}
}

func TestHandleTrackChangedSameTitleIsNotATransition(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "Same Song"},
		StartTimestamp: time.Now(),
		PlayedMs:       60_000,
		IsPlaying:      true,
	})

	e.handle(context.Background(), domain.Event{
		Kind:   domain.EventTrackChanged,
		Player: ":1.1",
		Track:  domain.Track{Title: "Same Song"},
	})

	if sink.len() != 0 {
		t.Errorf("a TrackChanged carrying the same title should not end the episode, got %d records", sink.len())
	}
}

func TestHandlePlayingThenPausedQualifiesAndLogs(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{Track: domain.Track{Title: "Live Song"}})

	e.handle(context.Background(), domain.Event{Kind: domain.EventPlaying, Player: ":1.1"})
	time.Sleep(20 * time.Millisecond)
	e.handle(context.Background(), domain.Event{Kind: domain.EventPaused, Player: ":1.1"})

	if sink.len() != 1 {
		t.Fatalf("sink.len() = %d, want 1 after Playing then Paused", sink.len())
	}
}

func TestHandlePlayerDisappearedLogsAndRemoves(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "Final Song"},
		StartTimestamp: time.Now(),
		PlayedMs:       60_000,
		IsPlaying:      true,
	})

	e.handle(context.Background(), domain.Event{Kind: domain.EventPlayerDisappeared, Player: "org.mpris.MediaPlayer2.vlc"})

	if sink.len() != 1 {
		t.Fatalf("sink.len() = %d, want 1", sink.len())
	}
	if reg.Has(":1.1") {
		t.Error("PlayerDisappeared should remove the player from the registry")
	}
}

func TestHandleSeekedWithTrackSeeksTrueUpdatesIntroSkip(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)
	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{})

	e.handle(context.Background(), domain.Event{Kind: domain.EventSeeked, Player: ":1.1", PositionUs: int64(3 * time.Second / time.Microsecond)})
	e.handle(context.Background(), domain.Event{Kind: domain.EventSeeked, Player: ":1.1", PositionUs: int64(20 * time.Second / time.Microsecond)})

	snap := reg.Snapshot()[":1.1"]
	if !snap.IntroSkipped {
		t.Error("two seeds crossing the intro-skip boundary should set IntroSkipped")
	}
	if snap.SeekCount != 2 {
		t.Errorf("SeekCount = %d, want 2", snap.SeekCount)
	}
}

func TestHandleSeekedWithTrackSeeksFalseOnlyUpdatesPosition(t *testing.T) {
	sink := &fakeSink{}
	reg := registry.New()
	adapter := newFakeAdapter()
	cfg := testConfig()
	cfg.TrackSeeks = false
	e := New(zap.NewNop(), cfg, adapter, reg, sink, nil)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{})
	e.handle(context.Background(), domain.Event{Kind: domain.EventSeeked, Player: ":1.1", PositionUs: 20_000_000})

	snap := reg.Snapshot()[":1.1"]
	if snap.SeekCount != 0 {
		t.Errorf("track_seeks=false must not increment SeekCount, got %d", snap.SeekCount)
	}
	if snap.LastPositionUs != 20_000_000 {
		t.Errorf("LastPositionUs = %d, want 20000000", snap.LastPositionUs)
	}
}

func TestFinalizeLogsResidualEpisodes(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "Residual Song"},
		StartTimestamp: time.Now(),
		PlayedMs:       60_000,
		IsPlaying:      true,
	})
	reg.Add(":1.2", "org.mpris.MediaPlayer2.spotify", playback.State{}) // no title, shouldn't qualify

	e.finalize(context.Background())

	if sink.len() != 1 {
		t.Fatalf("finalize should log exactly the one qualifying residual episode, got %d", sink.len())
	}
	if sink.titles()[0] != "Residual Song" {
		t.Errorf("logged title = %q, want Residual Song", sink.titles()[0])
	}
}

// TestFinalizeDoesNotReLogPausedEntry verifies that a state which was
// already stopped (and thus already logged or already evaluated) at some
// earlier Paused/Stopped event is not logged a second time at shutdown
// just because it still carries a qualifying PlayedMs/StartTimestamp.
func TestFinalizeDoesNotReLogPausedEntry(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "Already Paused Song"},
		StartTimestamp: time.Now(),
		PlayedMs:       60_000,
		IsPlaying:      false,
	})

	e.finalize(context.Background())

	if sink.len() != 0 {
		t.Errorf("finalize must not log a non-playing (already handled) entry, got %d records", sink.len())
	}
}

// TestHandleTrackChangedWhilePausedDoesNotDoubleLog covers the exact
// regression scenario: Playing A for 60s, Paused (logs A), then the user
// switches to track B without an intervening Playing event. The
// TrackChanged must not re-log A a second time.
func TestHandleTrackChangedWhilePausedDoesNotDoubleLog(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "Song A"},
		StartTimestamp: time.Now(),
		IsPlaying:      true,
	})

	e.handle(context.Background(), domain.Event{Kind: domain.EventPaused, Player: ":1.1"})
	if sink.len() != 1 {
		t.Fatalf("sink.len() after Paused = %d, want 1", sink.len())
	}

	e.handle(context.Background(), domain.Event{
		Kind:   domain.EventTrackChanged,
		Player: ":1.1",
		Track:  domain.Track{Title: "Song B"},
	})

	if sink.len() != 1 {
		t.Errorf("sink.len() after TrackChanged while paused = %d, want still 1 (no double log of Song A)", sink.len())
	}
}

// TestHandleRedundantPausedDoesNotDoubleLog covers a duplicate Paused
// signal arriving twice with no intervening Playing event.
func TestHandleRedundantPausedDoesNotDoubleLog(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "Song A"},
		StartTimestamp: time.Now(),
		IsPlaying:      true,
	})

	e.handle(context.Background(), domain.Event{Kind: domain.EventPaused, Player: ":1.1"})
	e.handle(context.Background(), domain.Event{Kind: domain.EventPaused, Player: ":1.1"})

	if sink.len() != 1 {
		t.Errorf("a redundant Paused signal must not log twice, got %d records", sink.len())
	}
}

// TestNoDoubleLogAcrossTransitionAndDisappearance verifies that once an
// episode is logged via TrackChanged, the same episode is never logged
// again when the player later disappears (spec §8 property 1).
func TestNoDoubleLogAcrossTransitionAndDisappearance(t *testing.T) {
	sink := &fakeSink{}
	e, reg := newTestEngine(sink)

	reg.Add(":1.1", "org.mpris.MediaPlayer2.vlc", playback.State{
		Track:          domain.Track{Title: "First Song"},
		StartTimestamp: time.Now(),
		PlayedMs:       60_000,
		IsPlaying:      true,
	})

	e.handle(context.Background(), domain.Event{
		Kind:   domain.EventTrackChanged,
		Player: ":1.1",
		Track:  domain.Track{Title: "Second Song"},
	})
	e.handle(context.Background(), domain.Event{Kind: domain.EventPlayerDisappeared, Player: "org.mpris.MediaPlayer2.vlc"})

	if sink.len() != 2 {
		t.Fatalf("sink.len() = %d, want 2 (First Song via TrackChanged, Second Song via Disappeared)", sink.len())
	}
	titles := sink.titles()
	if titles[0] != "First Song" || titles[1] != "Second Song" {
		t.Errorf("titles = %v, want [First Song, Second Song], each logged exactly once", titles)
	}
}
