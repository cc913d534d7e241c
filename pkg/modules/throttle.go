package modules

import (
	"math/rand"
	"time"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

type throttleState int

const (
	throttleIdle throttleState = iota
	throttleActive
	throttleCooling
)

// Throttle implements the throttle ("lag window") module: a cycle
// begins when an eligible packet arrives and probability gates the start;
// while active, matching packets buffer (or drop); the cycle ends on
// elapsed >= throttle_ms or buffer overflow, releasing (or clearing) the
// buffer. Normal submode imposes a cooldown (the inverse of probability)
// between cycles; freeze submode chains cycles back-to-back.
type Throttle struct {
	Window EffectWindow

	state      throttleState
	cycleStart time.Time
	coolUntil  time.Time
	buffer     []*packet.Packet
}

func (m *Throttle) Apply(in []*packet.Packet, opts settings.ThrottleOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
		return in
	}
	active := m.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))

	now := clk.Now()
	out := make([]*packet.Packet, 0, len(in))
	throttleDur := time.Duration(opts.ThrottleMs) * time.Millisecond

	for _, p := range in {
		if !active || !Eligible(p, opts.Common) {
			out = append(out, p)
			continue
		}

		if m.state == throttleIdle {
			if !Sample(rng, opts.Common) {
				out = append(out, p)
				continue
			}
			m.state = throttleActive
			m.cycleStart = now
		} else if m.state == throttleCooling {
			if now.Before(m.coolUntil) {
				out = append(out, p)
				continue
			}
			m.state = throttleActive
			m.cycleStart = now
		}

		if m.state == throttleActive {
			if opts.Drop {
				st.WithWrite(func(s *stats.Stats) { s.Throttle.DroppedCount++ })
			} else {
				m.buffer = append(m.buffer, p)
			}
			if opts.MaxBuffer > 0 && len(m.buffer) >= opts.MaxBuffer {
				out = append(out, m.endCycle(opts, now)...)
			}
		}
	}

	if m.state == throttleActive && now.Sub(m.cycleStart) >= throttleDur {
		out = append(out, m.endCycle(opts, now)...)
	}

	st.WithWrite(func(s *stats.Stats) {
		s.Throttle.IsThrottling = m.state == throttleActive
		s.Throttle.BufferedCount = len(m.buffer)
	})

	return out
}

// endCycle releases (or clears) the buffer and transitions state per
// submode, returning packets to re-inject this cycle.
func (m *Throttle) endCycle(opts settings.ThrottleOptions, now time.Time) []*packet.Packet {
	var released []*packet.Packet
	if !opts.Drop {
		released = m.buffer
	}
	m.buffer = nil

	if opts.Freeze {
		m.state = throttleActive
		m.cycleStart = now
	} else {
		m.state = throttleCooling
		cooldown := time.Duration(opts.ThrottleMs) * time.Millisecond
		if p := opts.Common.Probability.Value(); p > 0 {
			cooldown = time.Duration(float64(opts.ThrottleMs)/p) * time.Millisecond
		}
		m.coolUntil = now.Add(cooldown)
	}
	return released
}
