//go:build !linux
// +build !linux

package listening

import (
	"context"

	"go.uber.org/zap"
)

// ExecProber is a stub on non-Linux platforms: every probe reports
// unknown rather than failing the episode.
type ExecProber struct {
	logger *zap.Logger
}

// NewExecProber returns a no-op context prober for unsupported platforms.
func NewExecProber(logger *zap.Logger) *ExecProber {
	logger.Warn("context probes are not implemented for this platform")
	return &ExecProber{logger: logger}
}

func (p *ExecProber) ActiveWindow(ctx context.Context) (string, bool) { return "", false }
func (p *ExecProber) ScreenOn(ctx context.Context) (bool, bool)       { return false, false }
func (p *ExecProber) OnBattery(ctx context.Context) (bool, bool)      { return false, false }
