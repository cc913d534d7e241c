package modules

import (
	"math/rand"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

// Duplicate implements the duplicate module: each matching/sampling
// packet gets count additional clones. count == 0 or probability == 0 is a
// no-op.
type Duplicate struct {
	Window EffectWindow
}

func (m *Duplicate) Apply(in []*packet.Packet, opts settings.DuplicateOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled || opts.Count == 0 || opts.Common.Probability.IsZero() {
		return in
	}
	active := m.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))
	if !active {
		return in
	}

	out := make([]*packet.Packet, 0, len(in))
	var incoming, outgoing uint64
	for _, p := range in {
		out = append(out, p)
		incoming++
		outgoing++
		if !Eligible(p, opts.Common) || !Sample(rng, opts.Common) {
			continue
		}
		for i := 0; i < opts.Count; i++ {
			out = append(out, p.Clone())
			outgoing++
		}
	}

	st.WithWrite(func(s *stats.Stats) {
		s.Duplicate.Incoming += incoming
		s.Duplicate.Outgoing += outgoing
		if incoming > 0 {
			s.Duplicate.Multiplier.Update(float64(outgoing) / float64(incoming))
		}
	})

	return out
}
