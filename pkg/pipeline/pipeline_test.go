package pipeline_test

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/pkg/clock"
	"netsim/pkg/driver/fake"
	"netsim/pkg/packet"
	"netsim/pkg/pipeline"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

func buildPacket(t *testing.T) *packet.Packet {
	t.Helper()
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2)}
	udp := &layers.UDP{SrcPort: 1111, DstPort: 2222}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}, ip, udp, gopacket.Payload([]byte("x"))))
	return packet.New(buf.Bytes(), packet.Inbound, time.Now())
}

func TestProcessor_PassesThroughWithEverythingDisabled(t *testing.T) {
	in := make(chan *packet.Packet, 8)
	sendDrv := fake.New(nil, 8)
	settingsSrc := pipeline.NewSettingsSource(settings.Default())
	st := stats.New()
	var running atomic.Bool
	running.Store(true)

	p := pipeline.New(in, settingsSrc, st, clock.Real{}, &running, sendDrv)
	done := make(chan error, 1)
	go func() { done <- p.Run() }()

	pkt := buildPacket(t)
	in <- pkt

	select {
	case got := <-sendDrv.Sent:
		assert.Equal(t, pkt.Data, got.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet to pass through the disabled pipeline")
	}

	running.Store(false)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not shut down")
	}
}

func TestProcessor_DropAllDiscardsEverything(t *testing.T) {
	in := make(chan *packet.Packet, 8)
	sendDrv := fake.New(nil, 8)
	s := settings.NewBuilder().Drop(100).Build()
	settingsSrc := pipeline.NewSettingsSource(s)
	st := stats.New()
	var running atomic.Bool
	running.Store(true)

	p := pipeline.New(in, settingsSrc, st, clock.Real{}, &running, sendDrv)
	done := make(chan error, 1)
	go func() { done <- p.Run() }()

	in <- buildPacket(t)

	select {
	case <-sendDrv.Sent:
		t.Fatal("a packet escaped a drop-probability-1.0 pipeline")
	case <-time.After(200 * time.Millisecond):
	}

	running.Store(false)
	<-done
}

func TestSettingsSource_GetReflectsReplace(t *testing.T) {
	src := pipeline.NewSettingsSource(settings.Default())
	assert.False(t, src.Get().Drop.Common.Enabled)

	src.Replace(settings.NewBuilder().Drop(50).Build())
	assert.True(t, src.Get().Drop.Common.Enabled)
}
