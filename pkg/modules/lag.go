package modules

import (
	"container/list"
	"math/rand"
	"time"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

type lagEntry struct {
	pkt        *packet.Packet
	capturedAt time.Time
}

// Lag implements the lag module: matching/sampling packets are
// appended to a FIFO keyed by capture time; the head of the queue releases
// once now-capture_time >= lag_ms. Capture times are monotonically
// non-decreasing, so head-first release preserves FIFO order.
type Lag struct {
	Window EffectWindow
	queue  list.List
}

// Apply appends eligible packets to the FIFO and releases matured ones,
// returning the packets it passes through first, then the released ones in
// FIFO order.
func (m *Lag) Apply(in []*packet.Packet, opts settings.LagOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
		return in
	}
	active := m.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))

	out := make([]*packet.Packet, 0, len(in))
	for _, p := range in {
		if !active || !Eligible(p, opts.Common) || !Sample(rng, opts.Common) {
			out = append(out, p)
			continue
		}
		m.queue.PushBack(lagEntry{pkt: p, capturedAt: clk.Now()})
	}

	now := clk.Now()
	lagDur := time.Duration(opts.LagMs) * time.Millisecond
	for m.queue.Len() > 0 {
		front := m.queue.Front()
		entry := front.Value.(lagEntry)
		if now.Sub(entry.capturedAt) < lagDur {
			break
		}
		out = append(out, entry.pkt)
		m.queue.Remove(front)
	}

	st.WithWrite(func(s *stats.Stats) {
		s.Lag.QueueLength = m.queue.Len()
		if m.queue.Len() > s.Lag.MaxObserved {
			s.Lag.MaxObserved = m.queue.Len()
		}
		s.Lag.Cycles++
	})

	return out
}
