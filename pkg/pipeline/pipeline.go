// Package pipeline implements the processor: it drains the
// receiver's channel, runs the eight impairment modules in their fixed
// order, and re-injects survivors through a send-only handle.
package pipeline

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"netsim/internal/log"
	"netsim/internal/metrics"
	"netsim/pkg/capture"
	"netsim/pkg/clock"
	"netsim/pkg/driver"
	"netsim/pkg/modules"
	"netsim/pkg/neterr"
	"netsim/pkg/packet"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
)

// SettingsSource is the mutex-protected Settings the pipeline reads once per
// cycle.
type SettingsSource struct {
	mu sync.Mutex
	s  settings.Settings
}

// NewSettingsSource returns a SettingsSource seeded with s.
func NewSettingsSource(s settings.Settings) *SettingsSource {
	return &SettingsSource{s: s}
}

// Get copies out the current settings under lock.
func (s *SettingsSource) Get() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

// Replace atomically swaps in a new settings value.
func (s *SettingsSource) Replace(n settings.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s = n
}

// Processor runs the fixed-order impairment pipeline every cycle.
type Processor struct {
	In       <-chan *packet.Packet
	Settings *SettingsSource
	Stats    *stats.Stats
	Clock    clock.Clock
	Running  *atomic.Bool
	Rng      *rand.Rand

	sendManager *capture.Manager

	drop      modules.Drop
	lag       modules.Lag
	throttle  modules.Throttle
	reorder   modules.Reorder
	tamper    modules.Tamper
	duplicate modules.Duplicate
	bandwidth modules.Bandwidth
	burst     modules.Burst

	recvCount uint64
	sendCount uint64
	lastLog   time.Time

	mirroredRecv      uint64
	mirroredSend      uint64
	mirroredDropped   uint64
	mirroredReordered uint64
	mirroredDupOut    uint64
}

// New returns a Processor that opens a send-only handle on sendDrv.
func New(in <-chan *packet.Packet, settingsSrc *SettingsSource, st *stats.Stats, clk clock.Clock, running *atomic.Bool, sendDrv driver.Driver) *Processor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Processor{
		In:          in,
		Settings:    settingsSrc,
		Stats:       st,
		Clock:       clk,
		Running:     running,
		Rng:         rand.New(rand.NewSource(1)),
		sendManager: capture.NewManager(sendDrv),
	}
}

// Run opens the send-only handle for the no-match filter and processes
// cycles until Running is cleared, then closes the send handle, which
// flushes the driver cache.
func (p *Processor) Run() error {
	if err := p.sendManager.Open(capture.HandleConfig{Filter: "false", RecvOnly: false}); err != nil {
		return err
	}
	defer p.sendManager.Close()

	p.lastLog = p.Clock.Now()
	metrics.ProcessingRunning.Set(1)
	defer metrics.ProcessingRunning.Set(0)

	for p.Running.Load() {
		p.cycle()
	}
	return nil
}

func (p *Processor) cycle() {
	cycleStart := p.Clock.Now()
	defer func() {
		metrics.PipelineCycleSeconds.Observe(p.Clock.Now().Sub(cycleStart).Seconds())
	}()

	pending := p.drain()
	if len(pending) == 0 {
		p.maybeLog()
		return
	}

	st := p.Settings.Get()

	pending = p.drop.Apply(pending, st.Drop, p.Rng, p.Clock, p.Stats)
	pending = p.lag.Apply(pending, st.Lag, p.Rng, p.Clock, p.Stats)
	pending = p.throttle.Apply(pending, st.Throttle, p.Rng, p.Clock, p.Stats)
	pending = p.reorder.Apply(pending, st.Reorder, p.Rng, p.Clock, p.Stats)
	pending = p.tamper.Apply(pending, st.Tamper, p.Rng, p.Clock, p.Stats)
	pending = p.duplicate.Apply(pending, st.Duplicate, p.Rng, p.Clock, p.Stats)
	pending = p.bandwidth.Apply(pending, st.Bandwidth, p.Rng, p.Clock, p.Stats)
	pending = p.burst.Apply(pending, st.Burst, p.Rng, p.Clock, p.Stats)

	hnd, ok := p.sendManager.Handle()
	if !ok {
		return
	}
	for _, pkt := range pending {
		if err := p.send(hnd, pkt, st.LagBypass); err != nil {
			log.GetLogger().WithError(err).Debug("pipeline: send failed, dropping packet")
			continue
		}
		p.sendCount++
	}

	p.maybeLog()
}

// drain performs a non-blocking try-drain of the channel into a local
// vector.
func (p *Processor) drain() []*packet.Packet {
	var out []*packet.Packet
	for {
		select {
		case pkt, ok := <-p.In:
			if !ok {
				return out
			}
			out = append(out, pkt)
			p.recvCount++
		default:
			return out
		}
	}
}

// send injects pkt, retrying once with swapped source/destination IPs if
// lagBypass is set and the first attempt fails.
func (p *Processor) send(hnd driver.Driver, pkt *packet.Packet, lagBypass bool) error {
	err := hnd.Send(pkt)
	if err == nil {
		return nil
	}
	if !lagBypass {
		return neterr.Driver(err)
	}
	if swapErr := swapIPAddresses(pkt); swapErr != nil {
		return neterr.Driver(err)
	}
	_ = pkt.RecalculateChecksums()
	return hnd.Send(pkt)
}

func (p *Processor) maybeLog() {
	now := p.Clock.Now()
	if now.Sub(p.lastLog) < 2*time.Second {
		return
	}
	log.GetLogger().WithField("received", p.recvCount).WithField("sent", p.sendCount).Info("pipeline cycle counters")
	p.lastLog = now
	p.mirrorMetrics()
}

// mirrorMetrics pushes the current stats snapshot into the read-only
// Prometheus mirror (internal/metrics). pkg/stats stays the source of truth
// for get_status; this only runs on the same 2-second cadence as the log
// line above.
func (p *Processor) mirrorMetrics() {
	metrics.ReceivePacketsTotal.Add(float64(p.recvCount - p.mirroredRecv))
	metrics.SendPacketsTotal.Add(float64(p.sendCount - p.mirroredSend))
	p.mirroredRecv = p.recvCount
	p.mirroredSend = p.sendCount

	snap := p.Stats.Snapshot()

	metrics.ModulePacketsTotal.WithLabelValues("drop", "dropped").Add(float64(snap.Drop.Dropped - p.mirroredDropped))
	metrics.ModulePacketsTotal.WithLabelValues("reorder", "reordered").Add(float64(snap.Reorder.Reordered - p.mirroredReordered))
	dupClones := snap.Duplicate.Outgoing - snap.Duplicate.Incoming
	metrics.ModulePacketsTotal.WithLabelValues("duplicate", "duplicated").Add(float64(dupClones - p.mirroredDupOut))
	p.mirroredDropped = snap.Drop.Dropped
	p.mirroredReordered = snap.Reorder.Reordered
	p.mirroredDupOut = dupClones

	metrics.ModuleQueueLength.WithLabelValues("lag").Set(float64(snap.Lag.QueueLength))
	metrics.ModuleQueueLength.WithLabelValues("reorder").Set(float64(snap.Reorder.DelayedInHeap))
	metrics.ModuleQueueLength.WithLabelValues("throttle").Set(float64(snap.Throttle.BufferedCount))
	metrics.ModuleQueueLength.WithLabelValues("bandwidth").Set(float64(snap.Bandwidth.BufferedPackets))
	metrics.ModuleQueueLength.WithLabelValues("burst").Set(float64(snap.Burst.CurrentBufferSize))

	if rate, ok := snap.Bandwidth.RateKBps.Value(); ok {
		metrics.BandwidthRateKBps.Set(rate)
	}
}
