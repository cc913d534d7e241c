package modules

import (
	"math/rand"
	"time"

	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

const bandwidthHardCapBytes = 10 * 1024 * 1024 // 10 MiB

// Bandwidth implements the inline bandwidth module: a token bucket
// over the pipeline loop. Incoming matching packets append to a FIFO
// (capped at 10 MiB, dropping from the front on overflow); each cycle,
// bytes_allowed = limit_kbps*1024*(now-last_send) releases packets from the
// head. Packets strictly smaller than passthrough_threshold bypass the
// bucket entirely.
type Bandwidth struct {
	Window   EffectWindow
	buffer   []*packet.Packet
	bufBytes int
	lastSend time.Time
	haveSend bool
}

func (m *Bandwidth) Apply(in []*packet.Packet, opts settings.BandwidthOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
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
		if opts.PassthroughThreshold > 0 && p.Size() < opts.PassthroughThreshold {
			out = append(out, p)
			continue
		}
		m.buffer = append(m.buffer, p)
		m.bufBytes += p.Size()
		for m.bufBytes > bandwidthHardCapBytes && len(m.buffer) > 0 {
			dropped := m.buffer[0]
			m.buffer = m.buffer[1:]
			m.bufBytes -= dropped.Size()
		}
	}

	if !m.haveSend {
		m.lastSend = now
		m.haveSend = true
	}
	elapsed := now.Sub(m.lastSend).Seconds()
	bytesAllowed := opts.LimitKbps * 1024 * elapsed

	released := 0
	accumulated := 0.0
	for len(m.buffer) > 0 {
		head := m.buffer[0]
		if accumulated+float64(head.Size()) > bytesAllowed {
			break
		}
		accumulated += float64(head.Size())
		out = append(out, head)
		m.buffer = m.buffer[1:]
		m.bufBytes -= head.Size()
		released++
	}
	if released > 0 {
		m.lastSend = now
	}

	st.WithWrite(func(s *stats.Stats) {
		s.Bandwidth.BufferedPackets = len(m.buffer)
		s.Bandwidth.TotalBytesSent += uint64(accumulated)
		s.Bandwidth.RateKBps.Update(accumulated / 1024 / maxFloat(elapsed, 0.0001))
	})

	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
