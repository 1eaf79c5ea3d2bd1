// Package listening captures the ListeningContext attached to a qualifying
// play: time-of-day fields computed locally, plus three best-effort
// external probes (focused window, screen state, battery state) run
// concurrently and bounded by a per-probe timeout (spec §4.E, §6).
package listening

import (
	"context"
	"sync"
	"time"

	"github.com/tbleher/niandra-go/internal/domain"
)

// probeTimeout bounds each individual context probe; a hung or missing
// utility must not delay logging the play itself.
const probeTimeout = 2 * time.Second

// Capture builds a ListeningContext for now. When trackContext is false
// (config option) the external probes are skipped entirely and only the
// time-derived fields are populated, matching the teacher's pattern of a
// config toggle gating an otherwise-always-available feature.
func Capture(ctx context.Context, prober domain.ContextProber, trackContext bool, now time.Time) domain.ListeningContext {
	weekday := now.Weekday()
	// time.Weekday is Sunday=0..Saturday=6; the spec wants Monday=0..Sunday=6.
	dayOfWeek := (int(weekday) + 6) % 7

	lc := domain.ListeningContext{
		HourOfDay: now.Hour(),
		DayOfWeek: dayOfWeek,
		IsWeekend: weekday == time.Saturday || weekday == time.Sunday,
		Season:    season(now.Month()),
	}

	if !trackContext || prober == nil {
		return lc
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		lc.ActiveWindow, lc.ActiveWindowKnown = prober.ActiveWindow(probeCtx)
	}()

	go func() {
		defer wg.Done()
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		lc.ScreenOn, lc.ScreenOnKnown = prober.ScreenOn(probeCtx)
	}()

	go func() {
		defer wg.Done()
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		lc.OnBattery, lc.OnBatteryKnown = prober.OnBattery(probeCtx)
	}()

	wg.Wait()
	return lc
}

// season buckets a month into a northern-hemisphere season.
func season(m time.Month) string {
	switch {
	case m >= time.March && m <= time.May:
		return "spring"
	case m >= time.June && m <= time.August:
		return "summer"
	case m >= time.September && m <= time.November:
		return "fall"
	default:
		return "winter"
	}
}
