package modules_test

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/pkg/clock"
	"netsim/pkg/modules"
	"netsim/pkg/packet"
	"netsim/pkg/probability"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

func buildPacket(t *testing.T, dir packet.Direction, payload []byte) *packet.Packet {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	udp := &layers.UDP{SrcPort: 1234, DstPort: 5678}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}, ip, udp, gopacket.Payload(payload)))
	return packet.New(buf.Bytes(), dir, time.Now())
}

func enabledCommon(p float64) settings.Common {
	return settings.Common{Enabled: true, Inbound: true, Outbound: true, Probability: probability.MustNew(p)}
}

func TestDrop_AllDroppedWhenProbabilityOne(t *testing.T) {
	var d modules.Drop
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	in := []*packet.Packet{buildPacket(t, packet.Inbound, []byte("a")), buildPacket(t, packet.Inbound, []byte("b"))}
	out := d.Apply(in, settings.DropOptions{Common: enabledCommon(1.0)}, rng, clk, st)

	assert.Empty(t, out)
	assert.Equal(t, uint64(2), st.Snapshot().Drop.Dropped)
}

func TestDrop_NoneDroppedWhenProbabilityZero(t *testing.T) {
	var d modules.Drop
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	in := []*packet.Packet{buildPacket(t, packet.Inbound, []byte("a"))}
	out := d.Apply(in, settings.DropOptions{Common: enabledCommon(0.0)}, rng, clk, st)

	assert.Len(t, out, 1)
}

func TestDrop_DisabledIsNoop(t *testing.T) {
	var d modules.Drop
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	in := []*packet.Packet{buildPacket(t, packet.Inbound, []byte("a"))}
	out := d.Apply(in, settings.DropOptions{Common: settings.Common{Enabled: false}}, rng, clk, st)

	assert.Len(t, out, 1)
}

func TestLag_ReleasesAfterLagDurationInFIFOOrder(t *testing.T) {
	var m modules.Lag
	st := stats.New()
	start := time.Now()
	clk := clock.NewFake(start)
	rng := rand.New(rand.NewSource(1))

	p1 := buildPacket(t, packet.Inbound, []byte("1"))
	p2 := buildPacket(t, packet.Inbound, []byte("2"))
	opts := settings.LagOptions{Common: enabledCommon(1.0), LagMs: 100}

	out := m.Apply([]*packet.Packet{p1}, opts, rng, clk, st)
	assert.Empty(t, out, "packet should be queued, not released immediately")

	out = m.Apply([]*packet.Packet{p2}, opts, rng, clk, st)
	assert.Empty(t, out)

	clk.Advance(150 * time.Millisecond)
	out = m.Apply(nil, opts, rng, clk, st)
	require.Len(t, out, 2)
	assert.Same(t, p1, out[0], "FIFO order: earliest captured packet releases first")
	assert.Same(t, p2, out[1])
}

func TestLag_IneligiblePacketsPassThroughImmediately(t *testing.T) {
	var m modules.Lag
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	opts := settings.LagOptions{Common: settings.Common{Enabled: true, Inbound: true, Probability: probability.MustNew(1.0)}, LagMs: 1000}
	out := m.Apply([]*packet.Packet{buildPacket(t, packet.Outbound, []byte("x"))}, opts, rng, clk, st)
	assert.Len(t, out, 1, "outbound packet not gated by Inbound-only common should pass straight through")
}

func TestReorder_ZeroMaxDelayDisablesEffect(t *testing.T) {
	var m modules.Reorder
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	in := []*packet.Packet{buildPacket(t, packet.Inbound, []byte("a"))}
	out := m.Apply(in, settings.ReorderOptions{Common: enabledCommon(1.0), MaxDelayMs: 0}, rng, clk, st)
	assert.Len(t, out, 1)
}

func TestReorder_DelaysThenReleasesOnElapsed(t *testing.T) {
	var m modules.Reorder
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p := buildPacket(t, packet.Inbound, []byte("a"))
	opts := settings.ReorderOptions{Common: enabledCommon(1.0), MaxDelayMs: 100}

	out := m.Apply([]*packet.Packet{p}, opts, rng, clk, st)
	assert.Empty(t, out, "packet must be held until its sampled delay elapses")

	clk.Advance(200 * time.Millisecond)
	out = m.Apply(nil, opts, rng, clk, st)
	require.Len(t, out, 1)
	assert.Same(t, p, out[0])
}

func TestDuplicate_ClonesCountTimes(t *testing.T) {
	var m modules.Duplicate
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p := buildPacket(t, packet.Inbound, []byte("orig"))
	out := m.Apply([]*packet.Packet{p}, settings.DuplicateOptions{Common: enabledCommon(1.0), Count: 2}, rng, clk, st)

	require.Len(t, out, 3)
	assert.Same(t, p, out[0])
	assert.NotSame(t, p, out[1])
	assert.Equal(t, p.Data, out[1].Data)
	snap := st.Snapshot()
	assert.Equal(t, uint64(1), snap.Duplicate.Incoming)
	assert.Equal(t, uint64(3), snap.Duplicate.Outgoing)
}

func TestDuplicate_ZeroCountIsNoop(t *testing.T) {
	var m modules.Duplicate
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p := buildPacket(t, packet.Inbound, []byte("orig"))
	out := m.Apply([]*packet.Packet{p}, settings.DuplicateOptions{Common: enabledCommon(1.0), Count: 0}, rng, clk, st)
	assert.Len(t, out, 1)
}

func TestBandwidth_BuffersAboveLimitAndReleasesOverTime(t *testing.T) {
	var m modules.Bandwidth
	st := stats.New()
	start := time.Now()
	clk := clock.NewFake(start)
	rng := rand.New(rand.NewSource(1))

	payload := make([]byte, 2000)
	p := buildPacket(t, packet.Inbound, payload)
	opts := settings.BandwidthOptions{Common: enabledCommon(1.0), LimitKbps: 1}

	out := m.Apply([]*packet.Packet{p}, opts, rng, clk, st)
	assert.Empty(t, out, "first cycle has had zero elapsed time, nothing should release yet")

	clk.Advance(5 * time.Second)
	out = m.Apply(nil, opts, rng, clk, st)
	assert.Len(t, out, 1, "enough time has elapsed for the token bucket to allow the buffered packet through")
}

func TestBandwidth_PassthroughBelowThreshold(t *testing.T) {
	var m modules.Bandwidth
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p := buildPacket(t, packet.Inbound, []byte("tiny"))
	opts := settings.BandwidthOptions{Common: enabledCommon(1.0), LimitKbps: 1, PassthroughThreshold: 10000}

	out := m.Apply([]*packet.Packet{p}, opts, rng, clk, st)
	require.Len(t, out, 1, "packet smaller than the passthrough threshold bypasses the bucket entirely")
	assert.Same(t, p, out[0])
}

func TestBurst_ManualModeBuffersUntilFlushed(t *testing.T) {
	var m modules.Burst
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p1 := buildPacket(t, packet.Inbound, []byte("1"))
	p2 := buildPacket(t, packet.Inbound, []byte("2"))
	opts := settings.BurstOptions{Common: enabledCommon(1.0), BufferMs: 0}

	out := m.Apply([]*packet.Packet{p1, p2}, opts, rng, clk, st)
	assert.Empty(t, out, "manual mode (buffer_ms=0) buffers indefinitely until flushed")

	flushed := m.FlushBuffer(false)
	require.Len(t, flushed, 2)
	assert.Same(t, p1, flushed[0])
	assert.Same(t, p2, flushed[1])
}

func TestBurst_FlushBufferReverse(t *testing.T) {
	var m modules.Burst
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p1 := buildPacket(t, packet.Inbound, []byte("1"))
	p2 := buildPacket(t, packet.Inbound, []byte("2"))
	opts := settings.BurstOptions{Common: enabledCommon(1.0), BufferMs: 0}
	m.Apply([]*packet.Packet{p1, p2}, opts, rng, clk, st)

	flushed := m.FlushBuffer(true)
	require.Len(t, flushed, 2)
	assert.Same(t, p2, flushed[0])
	assert.Same(t, p1, flushed[1])
}

func TestBurst_TimedModeReplaysAllAtOnceWhenReplaySpeedNonPositive(t *testing.T) {
	var m modules.Burst
	st := stats.New()
	start := time.Now()
	clk := clock.NewFake(start)
	rng := rand.New(rand.NewSource(1))

	p1 := buildPacket(t, packet.Inbound, []byte("1"))
	opts := settings.BurstOptions{Common: enabledCommon(1.0), BufferMs: 50, ReplaySpeed: 0}

	m.Apply([]*packet.Packet{p1}, opts, rng, clk, st)
	clk.Advance(100 * time.Millisecond)
	out := m.Apply(nil, opts, rng, clk, st)
	require.Len(t, out, 1)
	assert.Same(t, p1, out[0])
}

func TestTamper_RecalculatesChecksumsWhenConfigured(t *testing.T) {
	var m modules.Tamper
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p := buildPacket(t, packet.Inbound, []byte("some long enough payload to tamper bytes in"))
	original := append([]byte(nil), p.Data...)
	opts := settings.TamperOptions{Common: enabledCommon(1.0), Amount: 1.0, RecalculateChecksums: true}

	out := m.Apply([]*packet.Packet{p}, opts, rng, clk, st)
	require.Len(t, out, 1)
	assert.NotEqual(t, original, p.Data, "tamper with amount=1.0 must mutate the payload")
	assert.True(t, st.Snapshot().Tamper.ChecksumValid)
}

func TestTamper_ZeroAmountIsNoop(t *testing.T) {
	var m modules.Tamper
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	p := buildPacket(t, packet.Inbound, []byte("payload"))
	original := append([]byte(nil), p.Data...)
	opts := settings.TamperOptions{Common: enabledCommon(1.0), Amount: 0.0}

	m.Apply([]*packet.Packet{p}, opts, rng, clk, st)
	assert.Equal(t, original, p.Data)
}

func TestThrottle_BuffersThenReleasesOnCycleEnd(t *testing.T) {
	var m modules.Throttle
	st := stats.New()
	start := time.Now()
	clk := clock.NewFake(start)
	rng := rand.New(rand.NewSource(1))

	opts := settings.ThrottleOptions{Common: enabledCommon(1.0), ThrottleMs: 100}
	p1 := buildPacket(t, packet.Inbound, []byte("1"))

	out := m.Apply([]*packet.Packet{p1}, opts, rng, clk, st)
	assert.Empty(t, out, "packet buffers once a throttle cycle starts")
	assert.True(t, st.Snapshot().Throttle.IsThrottling)

	clk.Advance(150 * time.Millisecond)
	out = m.Apply(nil, opts, rng, clk, st)
	require.Len(t, out, 1, "cycle end releases the buffer")
	assert.Same(t, p1, out[0])
}

func TestThrottle_DropModeDiscardsInsteadOfBuffering(t *testing.T) {
	var m modules.Throttle
	st := stats.New()
	clk := clock.NewFake(time.Now())
	rng := rand.New(rand.NewSource(1))

	opts := settings.ThrottleOptions{Common: enabledCommon(1.0), ThrottleMs: 1000, Drop: true}
	p1 := buildPacket(t, packet.Inbound, []byte("1"))

	out := m.Apply([]*packet.Packet{p1}, opts, rng, clk, st)
	assert.Empty(t, out)
	assert.Equal(t, uint64(1), st.Snapshot().Throttle.DroppedCount)
}

func TestEffectWindow_ResetsWhenCycleHasNoEligiblePackets(t *testing.T) {
	var w modules.EffectWindow
	clk := clock.NewFake(time.Now())

	assert.True(t, w.Gate(clk, 1000, true), "window starts on first eligible cycle")
	assert.False(t, w.Gate(clk, 1000, false), "an empty cycle resets the window")

	clk.Advance(2000 * time.Millisecond)
	assert.True(t, w.Gate(clk, 1000, true), "a later eligible cycle starts a fresh window rather than resuming the expired one")
}

func TestEffectWindow_ZeroDurationIsInfinite(t *testing.T) {
	var w modules.EffectWindow
	clk := clock.NewFake(time.Now())

	assert.True(t, w.Gate(clk, 0, true))
	clk.Advance(time.Hour)
	assert.True(t, w.Gate(clk, 0, true))
}
