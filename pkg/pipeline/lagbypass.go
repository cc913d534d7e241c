package pipeline

import (
	"fmt"

	"netsim/pkg/packet"
)

// swapIPAddresses exchanges the source and destination IP addresses in
// pkt's header in place — the lag_bypass workaround for one application's
// anti-lag heuristic. Caller must call
// pkt.RecalculateChecksums afterward.
func swapIPAddresses(pkt *packet.Packet) error {
	data := pkt.Data
	if len(data) < 1 {
		return fmt.Errorf("pipeline: empty packet")
	}
	switch data[0] >> 4 {
	case 4:
		if len(data) < 20 {
			return fmt.Errorf("pipeline: short IPv4 header")
		}
		swapBytes(data, 12, 16, 4)
		return nil
	case 6:
		if len(data) < 40 {
			return fmt.Errorf("pipeline: short IPv6 header")
		}
		swapBytes(data, 8, 24, 16)
		return nil
	default:
		return fmt.Errorf("pipeline: not an IP packet")
	}
}

func swapBytes(data []byte, srcOff, dstOff, n int) {
	for i := 0; i < n; i++ {
		data[srcOff+i], data[dstOff+i] = data[dstOff+i], data[srcOff+i]
	}
}
