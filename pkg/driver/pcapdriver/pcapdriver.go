// Package pcapdriver adapts github.com/google/gopacket/pcap into a
// driver.Driver for loopback demos and manual testing. It is explicitly not
// the real kernel diversion driver spec.md §1 assumes — pcap can observe and
// re-inject on a live interface, but it cannot actually intercept traffic
// before delivery the way a kernel-mode diversion driver would, so this
// adapter only makes sense pointed at a loopback interface where "observe
// then re-send" is an acceptable stand-in.
package pcapdriver

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"netsim/internal/log"
	"netsim/internal/utils"
	"netsim/pkg/driver"
	"netsim/pkg/neterr"
	"netsim/pkg/packet"
)

const snapLen = 65535

// Driver is a pcap-backed driver.Driver bound to a single network
// interface, intended for loopback demos.
type Driver struct {
	Interface string

	handle *pcap.Handle
	src    *gopacket.PacketSource
}

// New returns a Driver bound to iface (e.g. "lo").
func New(iface string) *Driver {
	return &Driver{Interface: iface}
}

// Open starts a live capture on the configured interface and applies the
// BPF-translatable subset of cfg.Filter.
func (d *Driver) Open(cfg driver.Config) error {
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
	}

	h, err := pcap.OpenLive(d.Interface, snapLen, true, pcap.BlockForever)
	if err != nil {
		return neterr.Driver(fmt.Errorf("open %s: %w", d.Interface, err))
	}

	if bpfExpr, ok := translateFilter(cfg.Filter); ok && bpfExpr != "" {
		if err := h.SetBPFFilter(bpfExpr); err != nil {
			log.GetLogger().WithField("filter", bpfExpr).WithError(err).Warn("BPF filter rejected, capturing unfiltered")
		}
	} else if cfg.Filter != "" {
		log.GetLogger().WithField("filter", cfg.Filter).Warn("filter uses driver-specific tokens with no BPF equivalent, capturing unfiltered")
	}

	d.handle = h
	d.src = gopacket.NewPacketSource(h, h.LinkType())
	return nil
}

// Recv blocks for the next packet observed on the interface.
func (d *Driver) Recv() (*packet.Packet, error) {
	if d.handle == nil {
		return nil, neterr.ErrDriver
	}
	data, ci, err := d.handle.ZeroCopyReadPacketData()
	if err != nil {
		return nil, neterr.Driver(err)
	}
	ip := stripLinkLayer(data, d.handle.LinkType())
	return packet.New(ip, packet.Inbound, ci.Timestamp), nil
}

// Send re-injects p onto the interface.
func (d *Driver) Send(p *packet.Packet) error {
	if d.handle == nil {
		return neterr.ErrDriver
	}
	framed, err := addLoopbackFraming(p.Data)
	if err != nil {
		return neterr.Driver(err)
	}
	if err := d.handle.WritePacketData(framed); err != nil {
		return neterr.Driver(err)
	}
	return nil
}

// Close releases the pcap handle.
func (d *Driver) Close() error {
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
		d.src = nil
	}
	return nil
}

// SetParam is a no-op for pcap: live handles don't expose a queue-length or
// queue-time knob once opened, so tuning requires a reopen via Open.
func (d *Driver) SetParam(name string, value uint64) error {
	return nil
}

func stripLinkLayer(data []byte, lt layers.LinkType) []byte {
	switch lt {
	case layers.LinkTypeEthernet:
		if len(data) > 14 {
			return data[14:]
		}
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		if len(data) > 4 {
			return data[4:]
		}
	}
	return data
}

func addLoopbackFraming(ip []byte) ([]byte, error) {
	if len(ip) == 0 {
		return nil, fmt.Errorf("empty packet")
	}
	var family uint32 = 2 // AF_INET
	if ip[0]>>4 == 6 {
		family = 30 // AF_INET6 (Linux)
	}
	header := []byte{byte(family), byte(family >> 8), byte(family >> 16), byte(family >> 24)}
	return append(header, ip...), nil
}

// translateFilter checks with utils.CompileBpf that expr compiles as BPF and,
// if so, returns it unchanged as the libpcap filter string; no rewriting of
// the simulator's filter language is done. It reports ok=false for filters
// containing driver-specific tokens (loopback, localPort, remotePort) that
// have no BPF equivalent, and for expressions that do not compile.
func translateFilter(expr string) (string, bool) {
	if expr == "" {
		return "", true
	}
	if containsDriverSpecificToken(expr) {
		return "", false
	}
	raw, err := utils.CompileBpf(expr, snapLen)
	if err != nil {
		return "", false
	}
	log.GetLogger().WithField("filter", expr).WithField("bpf_instructions", len(raw)).Debug("compiled BPF filter")
	return expr, true
}

func containsDriverSpecificToken(expr string) bool {
	for _, tok := range []string{"loopback", "localPort", "remotePort"} {
		if containsWord(expr, tok) {
			return true
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	for i := 0; i+len(word) <= len(haystack); i++ {
		if haystack[i:i+len(word)] == word {
			return true
		}
	}
	return false
}
