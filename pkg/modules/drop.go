package modules

import (
	"math/rand"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

// Drop implements the drop module: stateless, retains only packets
// whose sample is >= probability (or whose direction does not match).
type Drop struct {
	Window EffectWindow
}

// Apply filters in, returning the survivors.
func (d *Drop) Apply(in []*packet.Packet, opts settings.DropOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
		return in
	}
	active := d.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))

	out := in[:0]
	for _, p := range in {
		if !active || !Eligible(p, opts.Common) {
			out = append(out, p)
			continue
		}
		st.WithWrite(func(s *stats.Stats) { s.Drop.Total++ })
		if Sample(rng, opts.Common) {
			st.WithWrite(func(s *stats.Stats) { s.Drop.Dropped++; s.Drop.Rate.Update(1) })
			continue
		}
		st.WithWrite(func(s *stats.Stats) { s.Drop.Rate.Update(0) })
		out = append(out, p)
	}
	return out
}
