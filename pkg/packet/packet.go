// Package packet implements the owned packet record — the
// only place raw IP bytes are mutated. Packets are copied out of the
// driver's scratch buffer on receive (never borrowed), so they can be held
// across pipeline cycles by module-private queues and heaps without
// lifetime contortions.
package packet

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"netsim/pkg/clock"
)

// Direction is the capture direction of a packet. The zero value is
// Unknown, which is treated as Inbound by default.
type Direction uint8

const (
	Unknown Direction = iota
	Inbound
	Outbound
)

// Metadata carries the opaque, driver-supplied addressing needed to
// re-inject a packet.
type Metadata struct {
	InterfaceIndex  int
	SubInterface    int
	FlowHash        uint64
	ProcessID       uint32 // 0 if the driver did not supply one
	IPChecksumOK    bool
	TCPChecksumOK   bool
	UDPChecksumOK   bool
}

// Packet is the exclusively-owned mutable byte buffer plus its capture
// metadata. The byte buffer always begins at the IP header.
type Packet struct {
	Data        []byte
	Direction   Direction
	CapturedAt  time.Time
	Meta        Metadata
}

// New copies b into a new, exclusively-owned Packet. dir's zero value
// (Unknown) is normalized to Inbound.
func New(b []byte, dir Direction, capturedAt time.Time) *Packet {
	if dir == Unknown {
		dir = Inbound
	}
	owned := make([]byte, len(b))
	copy(owned, b)
	return &Packet{Data: owned, Direction: dir, CapturedAt: capturedAt}
}

// Size returns the current buffer length in bytes.
func (p *Packet) Size() int { return len(p.Data) }

// Age reports how long ago the packet was captured, relative to clk.
func (p *Packet) Age(clk clock.Clock) time.Duration {
	return clk.Now().Sub(p.CapturedAt)
}

// Clone returns a deep copy of p with an independent byte buffer — used by
// the duplicate module, which must not let clones alias the original's
// memory (a later tamper step on one must not affect the other).
func (p *Packet) Clone() *Packet {
	cp := &Packet{
		Direction:  p.Direction,
		CapturedAt: p.CapturedAt,
		Meta:       p.Meta,
		Data:       make([]byte, len(p.Data)),
	}
	copy(cp.Data, p.Data)
	return cp
}

// ipVersion reports the IP version from the first nibble of the buffer.
func (p *Packet) ipVersion() int {
	if len(p.Data) == 0 {
		return 0
	}
	return int(p.Data[0] >> 4)
}

// RecalculateChecksums recomputes the IP/TCP/UDP checksums over the current
// buffer contents and updates the per-layer validity bits. It
// is the only operation allowed to re-derive checksum state; tamper calls
// it after mutating payload bytes.
func (p *Packet) RecalculateChecksums() error {
	var firstLayer gopacket.LayerType
	switch p.ipVersion() {
	case 4:
		firstLayer = layers.LayerTypeIPv4
	case 6:
		firstLayer = layers.LayerTypeIPv6
	default:
		return nil // not IP, nothing to recompute
	}

	parsed := gopacket.NewPacket(p.Data, firstLayer, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})

	var ip4 *layers.IPv4
	var ip6 *layers.IPv6
	var tcp *layers.TCP
	var udp *layers.UDP

	if l := parsed.Layer(layers.LayerTypeIPv4); l != nil {
		ip4 = l.(*layers.IPv4)
	}
	if l := parsed.Layer(layers.LayerTypeIPv6); l != nil {
		ip6 = l.(*layers.IPv6)
	}
	if l := parsed.Layer(layers.LayerTypeTCP); l != nil {
		tcp = l.(*layers.TCP)
	}
	if l := parsed.Layer(layers.LayerTypeUDP); l != nil {
		udp = l.(*layers.UDP)
	}

	serializable := make([]gopacket.SerializableLayer, 0, 4)
	if ip4 != nil {
		if tcp != nil {
			_ = tcp.SetNetworkLayerForChecksum(ip4)
		}
		if udp != nil {
			_ = udp.SetNetworkLayerForChecksum(ip4)
		}
		serializable = append(serializable, ip4)
	} else if ip6 != nil {
		if tcp != nil {
			_ = tcp.SetNetworkLayerForChecksum(ip6)
		}
		if udp != nil {
			_ = udp.SetNetworkLayerForChecksum(ip6)
		}
		serializable = append(serializable, ip6)
	}
	if tcp != nil {
		serializable = append(serializable, tcp)
	}
	if udp != nil {
		serializable = append(serializable, udp)
	}
	if payload := parsed.ApplicationLayer(); payload != nil {
		serializable = append(serializable, gopacket.Payload(payload.Payload()))
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, serializable...); err != nil {
		return err
	}

	p.Data = append(p.Data[:0], buf.Bytes()...)
	p.Meta.IPChecksumOK = true
	p.Meta.TCPChecksumOK = tcp != nil
	p.Meta.UDPChecksumOK = udp != nil
	return nil
}
