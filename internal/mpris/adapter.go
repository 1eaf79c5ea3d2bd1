//go:build linux
// +build linux

// Package mpris implements the Bus Adapter (spec §4.A) and Metadata Parser
// (spec §4.B): the only component that speaks D-Bus. It enumerates and
// subscribes to MPRIS players, classifies raw signals, and emits strongly
// typed domain.Event values onto a bounded channel for the event loop.
package mpris

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/daemonerr"
	"github.com/tbleher/niandra-go/internal/domain"
	"github.com/tbleher/niandra-go/internal/playback"
	"github.com/tbleher/niandra-go/internal/registry"
)

const (
	mprisPrefix    = "org.mpris.MediaPlayer2."
	mprisPath      = "/org/mpris/MediaPlayer2"
	mprisPlayer    = "org.mpris.MediaPlayer2.Player"
	propertyTimeout = 5 * time.Second
	eventChanCap    = 100
)

// Adapter is the session-bus-connected Bus Adapter.
type Adapter struct {
	logger *zap.Logger

	filter           registry.AdmissionFilter
	localOnlyPlayers []string

	events chan domain.Event

	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient
	wg              sync.WaitGroup
	playerNames     map[string]string // unique name -> well-known name
	lastDropWarning time.Time
}

// NewAdapter returns a Bus Adapter not yet connected to any bus.
func NewAdapter(logger *zap.Logger, filter registry.AdmissionFilter, player config.PlayerConfig) *Adapter {
	return &Adapter{
		logger:           logger,
		filter:           filter,
		localOnlyPlayers: player.LocalOnlyPlayers,
		events:           make(chan domain.Event, eventChanCap),
		playerNames:      make(map[string]string),
	}
}

// Events returns the channel the event loop drains.
func (a *Adapter) Events() <-chan domain.Event {
	return a.events
}

// Start connects to the session bus, discovers existing players, installs
// signal subscriptions, and then blocks until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	adapterCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	conn, err := NewStdDBusClient()
	if err != nil {
		a.mu.Lock()
		a.running = false
		a.cancel = nil
		a.mu.Unlock()
		return fmt.Errorf("%w: session bus connection failed: %v", daemonerr.Fatal, err)
	}

	select {
	case <-adapterCtx.Done():
		_ = conn.Close()
		return adapterCtx.Err()
	default:
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	a.wg.Add(1)
	func() {
		defer a.wg.Done()
		a.discoverExistingPlayers(adapterCtx)
	}()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("add PropertiesChanged match: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		a.logger.Warn("failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(mprisPlayer),
		dbus.WithMatchMember("Seeked"),
	); err != nil {
		a.logger.Warn("failed to add Seeked match signal", zap.Error(err))
	}

	a.wg.Add(1)
	go a.monitorSignals(adapterCtx)

	<-adapterCtx.Done()
	return adapterCtx.Err()
}

// Stop gracefully stops the adapter, waiting for in-flight goroutines
// before closing the event channel so no producer ever sends on it after
// close.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.running = false
	a.mu.Unlock()

	a.wg.Wait()
	close(a.events)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("failed to close D-Bus connection", zap.Error(err))
		}
	}
	return nil
}

// discoverExistingPlayers enumerates connected names, applies the
// admission filter, and emits PlayerAppeared/TrackChanged/Playing for each
// admitted player already running at startup.
func (a *Adapter) discoverExistingPlayers(ctx context.Context) {
	names, err := a.conn.ListNames()
	if err != nil {
		a.logger.Warn("failed to list bus names", zap.Error(err))
		return
	}

	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		if !a.filter.Allows(name) {
			a.logger.Debug("player rejected by admission filter", zap.String("player", name))
			continue
		}
		a.admitPlayer(ctx, name)
	}
}

// admitPlayer resolves the unique connection name for a well-known MPRIS
// name and emits its initial state.
func (a *Adapter) admitPlayer(ctx context.Context, wellKnownName string) {
	unique, err := a.conn.GetNameOwner(wellKnownName)
	if err != nil {
		a.logger.Warn("failed to resolve unique name", zap.String("player", wellKnownName), zap.Error(err))
		return
	}

	a.mu.Lock()
	a.playerNames[unique] = wellKnownName
	a.mu.Unlock()

	a.emit(domain.Event{Kind: domain.EventPlayerAppeared, Player: wellKnownName, Unique: unique})
	a.logger.Info("player admitted", zap.String("player", wellKnownName), zap.String("unique", unique))

	propCtx, cancel := context.WithTimeout(ctx, propertyTimeout)
	defer cancel()

	track, haveMetadata := a.fetchMetadata(propCtx, unique)
	if haveMetadata {
		isLocal := playback.IsLocalSource(track, wellKnownName, a.localOnlyPlayers)
		a.emit(domain.Event{Kind: domain.EventTrackChanged, Player: unique, Track: track, IsLocal: isLocal})
	}

	status, haveStatus := a.fetchStatus(propCtx, unique)
	if haveStatus && status == domain.StatusPlaying {
		a.emit(domain.Event{Kind: domain.EventPlaying, Player: unique})
	}
}

func (a *Adapter) fetchMetadata(ctx context.Context, player string) (domain.Track, bool) {
	variant, err := a.conn.GetProperty(ctx, player, mprisPath, mprisPlayer+".Metadata")
	if err != nil {
		a.logger.Debug("failed to get metadata", zap.String("player", player), zap.NamedError("kind", daemonerr.TransientBus), zap.Error(err))
		return domain.Track{}, false
	}
	m, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		a.logger.Debug("metadata property is not a map, ignoring", zap.String("player", player), zap.NamedError("kind", daemonerr.MalformedMetadata))
		return domain.Track{}, false
	}
	return parseMetadata(m), true
}

func (a *Adapter) fetchStatus(ctx context.Context, player string) (domain.PlayerStatus, bool) {
	variant, err := a.conn.GetProperty(ctx, player, mprisPath, mprisPlayer+".PlaybackStatus")
	if err != nil {
		a.logger.Debug("failed to get playback status", zap.String("player", player), zap.NamedError("kind", daemonerr.TransientBus), zap.Error(err))
		return "", false
	}
	s, ok := variant.Value().(string)
	if !ok {
		a.logger.Debug("playback status property is not a string, ignoring", zap.String("player", player), zap.NamedError("kind", daemonerr.MalformedMetadata))
		return "", false
	}
	return parsePlaybackStatus(s), true
}

// monitorSignals reads raw D-Bus signals and classifies them into events.
func (a *Adapter) monitorSignals(ctx context.Context) {
	defer a.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	a.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			switch sig.Name {
			case "org.freedesktop.DBus.NameOwnerChanged":
				a.handleNameOwnerChanged(ctx, sig)
			case "org.freedesktop.DBus.Properties.PropertiesChanged":
				a.handlePropertiesChanged(ctx, sig)
			case mprisPlayer + ".Seeked":
				a.handleSeeked(sig)
			}
		}
	}
}

func (a *Adapter) handleNameOwnerChanged(ctx context.Context, sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}
	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, mprisPrefix) {
		return
	}
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	if newOwner == "" && oldOwner != "" {
		a.mu.Lock()
		delete(a.playerNames, oldOwner)
		a.mu.Unlock()
		a.emit(domain.Event{Kind: domain.EventPlayerDisappeared, Player: name})
		return
	}

	if newOwner != "" && oldOwner == "" {
		if !a.filter.Allows(name) {
			a.logger.Debug("player rejected by admission filter", zap.String("player", name))
			return
		}
		a.admitPlayer(ctx, name)
		return
	}

	// Ownership transfer: rare, just re-point the mapping.
	if newOwner != "" && oldOwner != "" {
		a.mu.Lock()
		delete(a.playerNames, oldOwner)
		a.playerNames[newOwner] = name
		a.mu.Unlock()
	}
}

func (a *Adapter) handlePropertiesChanged(ctx context.Context, sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != mprisPlayer {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	unique := sig.Sender

	if statusVariant, ok := changed["PlaybackStatus"]; ok {
		if s, ok := statusVariant.Value().(string); ok {
			switch parsePlaybackStatus(s) {
			case domain.StatusPlaying:
				a.emit(domain.Event{Kind: domain.EventPlaying, Player: unique})
			case domain.StatusPaused:
				a.emit(domain.Event{Kind: domain.EventPaused, Player: unique})
			case domain.StatusStopped:
				a.emit(domain.Event{Kind: domain.EventStopped, Player: unique})
			}
		} else {
			a.logger.Debug("invalid playback status in signal, ignoring", zap.String("sender", unique), zap.NamedError("kind", daemonerr.MalformedMetadata))
		}
	}

	if metadataVariant, ok := changed["Metadata"]; ok {
		m, ok := metadataVariant.Value().(map[string]dbus.Variant)
		if !ok {
			a.logger.Debug("invalid metadata in signal, ignoring", zap.String("sender", unique), zap.NamedError("kind", daemonerr.MalformedMetadata))
			return
		}
		track := parseMetadata(m)
		wellKnown := a.wellKnownName(unique)
		isLocal := playback.IsLocalSource(track, wellKnown, a.localOnlyPlayers)
		a.emit(domain.Event{Kind: domain.EventTrackChanged, Player: unique, Track: track, IsLocal: isLocal})
	}
}

func (a *Adapter) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}
	positionUs, ok := coerceInt64(sig.Body[0])
	if !ok {
		return
	}
	a.emit(domain.Event{Kind: domain.EventSeeked, Player: sig.Sender, PositionUs: positionUs})
}

func (a *Adapter) wellKnownName(unique string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if wk, ok := a.playerNames[unique]; ok {
		return wk
	}
	return unique
}

// emit performs a non-blocking send; a full channel means the event loop
// is falling behind, which is logged (rate-limited) and the event is
// dropped rather than stalling the signal reader.
func (a *Adapter) emit(e domain.Event) {
	select {
	case a.events <- e:
	default:
		a.logChannelFullWarning()
	}
}

func (a *Adapter) logChannelFullWarning() {
	a.mu.Lock()
	defer a.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(a.lastDropWarning) >= warningInterval {
		a.logger.Warn("event channel full, dropping event")
		a.lastDropWarning = now
	}
}
