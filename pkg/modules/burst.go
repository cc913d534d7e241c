package modules

import (
	"math/rand"
	"time"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

type burstState int

const (
	burstIdle burstState = iota
	burstBuffering
	burstReplaying
)

type burstBuffered struct {
	pkt        *packet.Packet
	capturedAt time.Time
}

type replayEntry struct {
	pkt              *packet.Packet
	interArrivalDelay time.Duration
}

// Burst implements the burst ("lag switch") module. Timed mode
// buffers eligible packets for buffer_ms, then replays them paced by their
// original inter-arrival spacing divided by replay_speed (<=0 means release
// all at once). Manual mode (buffer_ms == 0) buffers indefinitely; release
// only happens when FlushBuffer is called on module disable, optionally in
// reverse order.
type Burst struct {
	Window EffectWindow

	state       burstState
	cycleStart  time.Time
	buffer      []burstBuffered
	replayQueue []replayEntry
	lastRelease time.Time
}

func (m *Burst) Apply(in []*packet.Packet, opts settings.BurstOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
		if len(m.buffer) > 0 {
			return append(in, m.FlushBuffer(opts.ReverseReplay)...)
		}
		m.state = burstIdle
		return in
	}
	active := m.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))

	now := clk.Now()
	out := make([]*packet.Packet, 0, len(in))

	for _, p := range in {
		if !active || !Eligible(p, opts.Common) || !Sample(rng, opts.Common) {
			out = append(out, p)
			continue
		}
		if m.state == burstIdle {
			m.state = burstBuffering
			m.cycleStart = now
		}
		m.buffer = append(m.buffer, burstBuffered{pkt: p, capturedAt: now})
	}

	if m.state == burstBuffering && opts.BufferMs > 0 && now.Sub(m.cycleStart) >= time.Duration(opts.BufferMs)*time.Millisecond {
		m.buildReplayQueue(opts)
		m.state = burstReplaying
		m.lastRelease = now
	}

	released := 0
	if m.state == burstReplaying {
		drained := m.drainReplay(now, opts)
		released = len(drained)
		out = append(out, drained...)
		if len(m.replayQueue) == 0 {
			m.state = burstIdle
		}
	}

	st.WithWrite(func(s *stats.Stats) {
		s.Burst.Buffered = len(m.buffer)
		s.Burst.ReleasedThisCycle = released
		s.Burst.CurrentBufferSize = len(m.buffer) + len(m.replayQueue)
	})

	return out
}

// buildReplayQueue converts the buffer into a replay queue of
// (packet, inter_arrival_delay) pairs, reversing it if ReverseReplay is set.
func (m *Burst) buildReplayQueue(opts settings.BurstOptions) {
	m.replayQueue = make([]replayEntry, 0, len(m.buffer))
	for i, b := range m.buffer {
		var delay time.Duration
		if i > 0 {
			delay = b.capturedAt.Sub(m.buffer[i-1].capturedAt)
		}
		m.replayQueue = append(m.replayQueue, replayEntry{pkt: b.pkt, interArrivalDelay: delay})
	}
	m.buffer = nil

	if opts.ReverseReplay {
		for i, j := 0, len(m.replayQueue)-1; i < j; i, j = i+1, j-1 {
			m.replayQueue[i], m.replayQueue[j] = m.replayQueue[j], m.replayQueue[i]
		}
	}
}

// drainReplay emits replay entries whose paced delay has elapsed.
// replay_speed <= 0 releases the whole queue immediately.
func (m *Burst) drainReplay(now time.Time, opts settings.BurstOptions) []*packet.Packet {
	if opts.ReplaySpeed <= 0 {
		released := make([]*packet.Packet, 0, len(m.replayQueue))
		for _, e := range m.replayQueue {
			released = append(released, e.pkt)
		}
		m.replayQueue = nil
		return released
	}

	var released []*packet.Packet
	for len(m.replayQueue) > 0 {
		next := m.replayQueue[0]
		pacedDelay := time.Duration(float64(next.interArrivalDelay) / opts.ReplaySpeed)
		if now.Sub(m.lastRelease) < pacedDelay {
			break
		}
		released = append(released, next.pkt)
		m.replayQueue = m.replayQueue[1:]
		m.lastRelease = now
	}
	return released
}

// FlushBuffer releases the manual-mode buffer on module disable, optionally
// in reverse order to match manual mode's disable-transition flush
// behavior.
func (m *Burst) FlushBuffer(reverse bool) []*packet.Packet {
	out := make([]*packet.Packet, 0, len(m.buffer))
	for _, b := range m.buffer {
		out = append(out, b.pkt)
	}
	m.buffer = nil
	m.state = burstIdle
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
