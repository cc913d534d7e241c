package modules

import (
	"math/rand"
	"time"

	"netsim/internal/log"
	"netsim/pkg/clock"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

const tamperSnapshotMinIntervalNanos = int64(200 * time.Millisecond)

// Tamper implements the tamper module: locates the payload offset
// of an IPv4/IPv6 + TCP/UDP packet, corrupts a fraction of its payload
// bytes with one of three primitives, and optionally recomputes checksums.
type Tamper struct {
	Window EffectWindow
}

func (m *Tamper) Apply(in []*packet.Packet, opts settings.TamperOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) []*packet.Packet {
	if !opts.Common.Enabled {
		return in
	}
	active := m.Window.Gate(clk, opts.Common.DurationMs, AnyEligible(in, opts.Common))
	if !active {
		return in
	}

	for _, p := range in {
		if !Eligible(p, opts.Common) || !Sample(rng, opts.Common) {
			continue
		}
		m.tamperOne(p, opts, rng, clk, st)
	}
	return in
}

func (m *Tamper) tamperOne(p *packet.Packet, opts settings.TamperOptions, rng *rand.Rand, clk clock.Clock, st *stats.Stats) {
	offset, ok := payloadOffset(p.Data)
	if !ok {
		return
	}
	payloadLen := len(p.Data) - offset
	if payloadLen <= 0 {
		return
	}

	n := int(float64(payloadLen) * opts.Amount)
	if n <= 0 {
		return
	}
	if n > payloadLen {
		n = payloadLen
	}

	flags := make([]bool, payloadLen)
	indices := rng.Perm(payloadLen)[:n]
	for _, idx := range indices {
		tamperByte(p.Data, offset+idx, rng)
		flags[idx] = true
	}

	checksumValid := false
	if opts.RecalculateChecksums {
		if err := p.RecalculateChecksums(); err != nil {
			log.GetLogger().WithError(err).Debug("tamper: checksum recompute failed")
		} else {
			checksumValid = true
		}
	}

	snapshot := append([]byte(nil), p.Data[offset:]...)
	st.WithWrite(func(s *stats.Stats) {
		s.Tamper.RefreshTamperSnapshot(clk.Now().UnixNano(), tamperSnapshotMinIntervalNanos, snapshot, flags, checksumValid)
	})
}

// tamperByte applies one of three primitives, chosen
// uniformly: set a random bit, XOR-flip a random bit, or add a signed
// adjustment in [-64, +64].
func tamperByte(data []byte, i int, rng *rand.Rand) {
	bit := uint(rng.Intn(8))
	switch rng.Intn(3) {
	case 0:
		data[i] |= 1 << bit
	case 1:
		data[i] ^= 1 << bit
	case 2:
		adj := rng.Intn(129) - 64 // [-64, 64]
		data[i] = byte(int(data[i]) + adj)
	}
}

// payloadOffset locates the start of the transport payload: IPv4 uses
// ihl*4, IPv6 a fixed 40 bytes; TCP adds data_offset*4, UDP adds 8.
func payloadOffset(data []byte) (int, bool) {
	if len(data) < 1 {
		return 0, false
	}
	version := data[0] >> 4

	var headerLen int
	var proto byte
	switch version {
	case 4:
		if len(data) < 20 {
			return 0, false
		}
		ihl := int(data[0] & 0x0f)
		headerLen = ihl * 4
		proto = data[9]
	case 6:
		if len(data) < 40 {
			return 0, false
		}
		headerLen = 40
		proto = data[6]
	default:
		return 0, false
	}
	if headerLen >= len(data) {
		return 0, false
	}

	switch proto {
	case 6: // TCP
		if headerLen+13 >= len(data) {
			return 0, false
		}
		dataOffset := int(data[headerLen+12]>>4) * 4
		offset := headerLen + dataOffset
		if offset > len(data) {
			return 0, false
		}
		return offset, true
	case 17: // UDP
		offset := headerLen + 8
		if offset > len(data) {
			return 0, false
		}
		return offset, true
	default:
		return headerLen, true
	}
}
