// Package modules implements the eight impairment modules:
// drop, lag, throttle, reorder, tamper, duplicate, bandwidth, burst. Every
// module obeys the shared contract in this file; the pipeline (G) calls
// them in the fixed order drop → lag → throttle → reorder → tamper →
// duplicate → bandwidth → burst.
package modules

import (
	"math/rand"
	"time"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
)

// EffectWindow tracks a module's duration_ms effect window. The window
// starts the first time a cycle has an eligible packet while the window is
// not already running, and resets once a cycle passes with no eligible
// packets at all — matching the inactive→cycle-with-packets transition
// modules with a window undergo.
type EffectWindow struct {
	start   time.Time
	started bool
}

// Gate reports whether the effect should apply this cycle, and advances the
// window's internal state. Call it once per Apply, before iterating
// packets, with whether this cycle has any eligible packet.
func (w *EffectWindow) Gate(clk clock.Clock, durationMs uint64, anyEligible bool) bool {
	if !anyEligible {
		w.started = false
		return false
	}
	if !w.started {
		w.start = clk.Now()
		w.started = true
	}
	if durationMs == 0 {
		return true
	}
	return clk.Now().Sub(w.start) < time.Duration(durationMs)*time.Millisecond
}

// Eligible reports whether p matches the module's direction gate.
func Eligible(p *packet.Packet, common settings.Common) bool {
	if !common.Enabled {
		return false
	}
	switch p.Direction {
	case packet.Inbound:
		return common.Inbound
	case packet.Outbound:
		return common.Outbound
	default:
		return common.Inbound
	}
}

// AnyEligible reports whether at least one packet in in matches common's
// direction gate.
func AnyEligible(in []*packet.Packet, common settings.Common) bool {
	for _, p := range in {
		if Eligible(p, common) {
			return true
		}
	}
	return false
}

// Sample draws from rng and compares against common.Probability.
func Sample(rng *rand.Rand, common settings.Common) bool {
	return common.Probability.Sample(rng)
}
