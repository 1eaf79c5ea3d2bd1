// Package engine implements the Event Loop (spec §4, "Event Loop" row):
// it owns the channel between the Bus Adapter and the rest of the
// pipeline, drives the Registry/qualify/sink handling for each event, and
// enforces idle-shutdown.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/daemonerr"
	"github.com/tbleher/niandra-go/internal/domain"
	"github.com/tbleher/niandra-go/internal/listening"
	"github.com/tbleher/niandra-go/internal/playback"
	"github.com/tbleher/niandra-go/internal/qualify"
	"github.com/tbleher/niandra-go/internal/registry"
)

// idlePollInterval is how often the loop checks the idle-timeout
// condition while otherwise blocked on the event channel.
const idlePollInterval = 1 * time.Second

// Engine is the Event Loop.
type Engine struct {
	logger *zap.Logger
	cfg    config.TrackingConfig

	adapter  domain.BusAdapter
	registry *registry.Registry
	sink     domain.Sink
	prober   domain.ContextProber

	stopping atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	done chan struct{}
}

// New constructs an Engine. All collaborators are injected so the loop
// itself never constructs a D-Bus connection, a database handle, or a
// subprocess.
func New(logger *zap.Logger, cfg config.TrackingConfig, adapter domain.BusAdapter, reg *registry.Registry, sink domain.Sink, prober domain.ContextProber) *Engine {
	return &Engine{
		logger:   logger,
		cfg:      cfg,
		adapter:  adapter,
		registry: reg,
		sink:     sink,
		prober:   prober,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the adapter and the loop in the background. It returns
// once both goroutines have been spawned; it does not wait for the loop
// to exit.
func (e *Engine) Start(ctx context.Context) error {
	go func() {
		if err := e.adapter.Start(ctx); err != nil {
			e.logger.Error("bus adapter stopped", zap.Error(err))
		}
	}()

	go e.run(ctx)
	return nil
}

// Stop signals the loop to drain and finalize, then waits for it to exit.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.stopping.Store(true)
		close(e.stopCh)
	})

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return e.adapter.Stop(ctx)
}

// run is the main loop: dequeue events, dispatch them, and periodically
// check the idle-timeout condition.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	events := e.adapter.Events()
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if e.stopping.Load() {
			e.finalize(context.Background())
			return
		}

		select {
		case <-ctx.Done():
			e.finalize(context.Background())
			return

		case <-e.stopCh:
			e.finalize(context.Background())
			return

		case ev, ok := <-events:
			if !ok {
				e.finalize(context.Background())
				return
			}
			e.handle(ctx, ev)

		case <-ticker.C:
			if e.cfg.IdleTimeoutSeconds <= 0 {
				continue
			}
			idleFor := e.registry.IdleDuration(time.Now())
			if idleFor >= time.Duration(e.cfg.IdleTimeoutSeconds)*time.Second {
				e.logger.Info("idle timeout reached, shutting down", zap.Duration("idleFor", idleFor))
				e.finalize(context.Background())
				return
			}
		}
	}
}

// finalize runs a last qualification pass over every residually playing
// episode before the loop exits. A state that is not currently playing
// was already logged (or never qualified) at whatever event stopped it,
// so only IsPlaying entries are considered here.
func (e *Engine) finalize(ctx context.Context) {
	now := time.Now()
	for unique, state := range e.registry.Snapshot() {
		if !state.IsPlaying {
			continue
		}
		played := state.PlayedDuration(now)
		e.maybeLog(ctx, state, played, e.registry.WellKnownName(unique))
	}
}

func (e *Engine) handle(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventPlayerAppeared:
		e.registry.Add(ev.Unique, ev.Player, playback.State{})
		e.logger.Info("player appeared", zap.String("player", ev.Player))

	case domain.EventPlayerDisappeared:
		snapshot, unique, ok := e.registry.Remove(ev.Player)
		if !ok {
			return
		}
		if snapshot.IsPlaying {
			played := snapshot.PlayedDuration(time.Now())
			e.maybeLog(ctx, snapshot, played, ev.Player)
		}
		e.logger.Info("player disappeared", zap.String("player", ev.Player), zap.String("unique", unique))

	case domain.EventTrackChanged:
		now := time.Now()
		wellKnown := e.registry.WellKnownName(ev.Player)
		var priorTitle string
		snapshot, ok := e.registry.Transition(ev.Player, func(s *playback.State) {
			priorTitle = s.Track.Title
			if priorTitle != ev.Track.Title {
				s.ResetForNewTrack(ev.Track, ev.IsLocal, now)
			}
		})
		if ok && snapshot.IsPlaying && priorTitle != ev.Track.Title && priorTitle != "" {
			played := snapshot.PlayedDuration(now)
			e.maybeLog(ctx, snapshot, played, wellKnown)
		}

	case domain.EventPlaying:
		now := time.Now()
		e.registry.Mutate(ev.Player, func(s *playback.State) {
			s.StartPlaying(now)
		})

	case domain.EventPaused, domain.EventStopped:
		now := time.Now()
		wellKnown := e.registry.WellKnownName(ev.Player)
		snapshot, ok := e.registry.Transition(ev.Player, func(s *playback.State) {
			s.StopPlaying(now)
		})
		if !ok || !snapshot.IsPlaying {
			return
		}
		played := snapshot.PlayedDuration(now)
		e.maybeLog(ctx, snapshot, played, wellKnown)

	case domain.EventSeeked:
		e.registry.Mutate(ev.Player, func(s *playback.State) {
			if e.cfg.TrackSeeks {
				s.OnSeeked(ev.PositionUs)
			} else {
				s.UpdatePosition(ev.PositionUs)
			}
		})
	}
}

// maybeLog runs the qualification predicate and, if it passes, captures
// the listening context and appends a PlayRecord to the sink. A sink
// failure is logged but never aborts the loop (spec §7, SinkFailure).
func (e *Engine) maybeLog(ctx context.Context, state playback.State, played time.Duration, playerName string) {
	if !qualify.ShouldLog(state, played, e.cfg) {
		return
	}

	lc := listening.Capture(ctx, e.prober, e.cfg.TrackContext, time.Now())
	effVolume, effKnown := state.EffectiveVolume()

	record := domain.PlayRecord{
		Track:     state.Track,
		Timestamp: time.Now(),
		PlayedMs:  played.Milliseconds(),

		SeekCount:      state.SeekCount,
		IntroSkipped:   state.IntroSkipped,
		SeekForwardMs:  state.SeekForwardMs,
		SeekBackwardMs: state.SeekBackwardMs,

		AppVolume:            state.AppVolume,
		AppVolumeKnown:       state.AppVolumeKnown,
		SystemVolume:         state.SystemVolume,
		SystemVolumeKnown:    state.SystemVolumeKnown,
		EffectiveVolume:      effVolume,
		EffectiveVolumeKnown: effKnown,

		ListeningContext: lc,

		PlayerName: playerName,
		IsLocal:    state.IsLocal,
	}

	if err := e.sink.Append(ctx, record); err != nil {
		e.logger.Error("failed to append play record",
			zap.String("player", playerName),
			zap.String("title", state.Track.Title),
			zap.NamedError("kind", daemonerr.SinkFailure),
			zap.Error(err))
		return
	}

	e.logger.Info("play qualified",
		zap.String("player", playerName),
		zap.String("title", state.Track.Title),
		zap.Int64("playedMs", played.Milliseconds()))
}
