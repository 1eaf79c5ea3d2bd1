//go:build !linux
// +build !linux

package mpris

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tbleher/niandra-go/internal/config"
	"github.com/tbleher/niandra-go/internal/domain"
	"github.com/tbleher/niandra-go/internal/registry"
)

// Adapter is a stub on non-Linux platforms: MPRIS is a freedesktop/D-Bus
// concept with no equivalent session bus elsewhere.
type Adapter struct {
	logger *zap.Logger
	events chan domain.Event
}

// NewAdapter returns a stub adapter that fails on Start.
func NewAdapter(logger *zap.Logger, _ registry.AdmissionFilter, _ config.PlayerConfig) *Adapter {
	return &Adapter{logger: logger, events: make(chan domain.Event)}
}

func (a *Adapter) Start(ctx context.Context) error {
	return fmt.Errorf("MPRIS monitoring is only supported on platforms with a D-Bus session bus")
}

func (a *Adapter) Stop(ctx context.Context) error {
	close(a.events)
	return nil
}

func (a *Adapter) Events() <-chan domain.Event {
	return a.events
}
