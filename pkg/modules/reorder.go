package modules

import (
	"container/heap"
	"math/rand"
	"time"

	"netsim/internal/log"
	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

type reorderItem struct {
	pkt     *packet.Packet
	release time.Time
}

type reorderHeap []reorderItem

func (h reorderHeap) Len() int            { return len(h) }
func (h reorderHeap) Less(i, j int) bool  { return h[i].release.Before(h[j].release) }
func (h reorderHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *reorderHeap) Push(x interface{}) { *h = append(*h, x.(reorderItem)) }
func (h *reorderHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Reorder implements the reorder module: each matching/sampling
// packet gets a uniformly sampled delay in [0, max_delay_ms) and is pushed
// into a min-heap keyed by release time; each cycle, entries whose release
// time has passed are emitted. max_delay_ms == 0 disables the effect.
type Reorder struct {
	Window EffectWindow
	heap   reorderHeap
	warned bool
}

func (m *Reorder) Apply(in []*packet.Packet, opts settings.ReorderOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
		return in
	}
	if opts.MaxDelayMs == 0 {
		if !m.warned {
			log.GetLogger().Warn("reorder: max_delay_ms is 0, effect disabled")
			m.warned = true
		}
		return in
	}
	m.warned = false

	active := m.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))

	now := clk.Now()
	out := make([]*packet.Packet, 0, len(in))
	for _, p := range in {
		if !active || !Eligible(p, opts.Common) || !Sample(rng, opts.Common) {
			out = append(out, p)
			continue
		}
		delay := time.Duration(rng.Int63n(int64(opts.MaxDelayMs))) * time.Millisecond
		heap.Push(&m.heap, reorderItem{pkt: p, release: now.Add(delay)})
		st.WithWrite(func(s *stats.Stats) { s.Reorder.Total++; s.Reorder.Reordered++; s.Reorder.Rate.Update(1) })
	}

	for m.heap.Len() > 0 && !m.heap[0].release.After(now) {
		item := heap.Pop(&m.heap).(reorderItem)
		out = append(out, item.pkt)
	}

	st.WithWrite(func(s *stats.Stats) { s.Reorder.DelayedInHeap = m.heap.Len() })

	return out
}
