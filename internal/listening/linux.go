//go:build linux
// +build linux

package listening

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ExecProber implements domain.ContextProber by shelling out to whichever
// desktop utility is available, trying an X11-era tool first and a
// Wayland-native one second — the same detect-then-fall-back idiom the
// teacher's executor package uses for wallpaper setters, applied here to
// read-only probes instead of a write action.
type ExecProber struct {
	logger *zap.Logger
}

// NewExecProber returns a context prober for Linux desktops.
func NewExecProber(logger *zap.Logger) *ExecProber {
	return &ExecProber{logger: logger}
}

// ActiveWindow reports the focused window's title, truncated to 200
// characters. It tries xdotool, then wlrctl.
func (p *ExecProber) ActiveWindow(ctx context.Context) (string, bool) {
	if commandExists("xdotool") {
		out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow", "getwindowname").Output()
		if err == nil {
			return truncate200(strings.TrimSpace(string(out))), true
		}
		p.logger.Debug("xdotool probe failed", zap.Error(err))
	}

	if commandExists("wlrctl") {
		out, err := exec.CommandContext(ctx, "wlrctl", "toplevel", "focus").Output()
		if err == nil {
			return truncate200(strings.TrimSpace(string(out))), true
		}
		p.logger.Debug("wlrctl probe failed", zap.Error(err))
	}

	return "", false
}

// ScreenOn reports whether the screen is currently on (not blanked by the
// screensaver/DPMS). It tries gnome-screensaver-command, then xset.
func (p *ExecProber) ScreenOn(ctx context.Context) (bool, bool) {
	if commandExists("gnome-screensaver-command") {
		out, err := exec.CommandContext(ctx, "gnome-screensaver-command", "-q").Output()
		if err == nil {
			active := strings.Contains(string(out), "is active")
			return !active, true
		}
		p.logger.Debug("gnome-screensaver-command probe failed", zap.Error(err))
	}

	if commandExists("xset") {
		out, err := exec.CommandContext(ctx, "xset", "q").Output()
		if err == nil {
			monitorOff := strings.Contains(string(out), "Monitor is Off")
			return !monitorOff, true
		}
		p.logger.Debug("xset probe failed", zap.Error(err))
	}

	return false, false
}

// OnBattery reports whether the system is currently running on battery. It
// reads /sys/class/power_supply/BAT*/status first, falling back to upower.
func (p *ExecProber) OnBattery(ctx context.Context) (bool, bool) {
	matches, _ := filepath.Glob("/sys/class/power_supply/BAT*/status")
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		status := strings.TrimSpace(string(data))
		return status == "Discharging", true
	}

	if commandExists("upower") {
		out, err := exec.CommandContext(ctx, "upower", "-i", "/org/freedesktop/UPower/devices/battery_BAT0").Output()
		if err == nil {
			discharging := strings.Contains(string(out), "state:") && strings.Contains(string(out), "discharging")
			return discharging, true
		}
		p.logger.Debug("upower probe failed", zap.Error(err))
	}

	return false, false
}

// commandExists checks if a binary exists in PATH.
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func truncate200(s string) string {
	r := []rune(s)
	if len(r) <= 200 {
		return s
	}
	return string(r[:200])
}
