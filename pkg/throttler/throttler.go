// Package throttler implements the standalone throttler sender:
// a receiver/sender thread pair with its own capture handle and a precise
// token-bucket rate limiter. It is started by the start_tc_bandwidth command
// (internal/engine); BandwidthOptions.UseWFP does not select it, and the
// inline bandwidth module keeps running in the pipeline either way.
package throttler

import (
	"sync/atomic"
	"time"

	"netsim/internal/log"
	"netsim/internal/timer"
	"netsim/pkg/capture"
	"netsim/pkg/clock"
	"netsim/pkg/driver"
	"netsim/pkg/packet"
)

// MinPayloadThreshold is the size below which packets bypass the token
// bucket entirely and are re-injected immediately.
const MinPayloadThreshold = 52

// AgeCeiling forces release of any packet held longer than this, regardless
// of available tokens.
const AgeCeiling = 12 * time.Second

const (
	sleepAfterRelease = 100 * time.Microsecond
	sleepIdle         = 1 * time.Millisecond
)

type queuedPacket struct {
	pkt      *packet.Packet
	queuedAt time.Time
}

// Throttler runs the receiver and sender loops. Both share the FIFO and a
// recvManager/sendManager pair of capture handles at priority -1000.
type Throttler struct {
	RateKBps float64
	Clock    clock.Clock
	Running  *atomic.Bool

	recvManager *capture.Manager
	sendManager *capture.Manager

	queue chan queuedPacket
}

// New returns a Throttler bound to the given capture drivers at priority
// -1000.
func New(rateKBps float64, clk clock.Clock, running *atomic.Bool, recvDrv, sendDrv driver.Driver) *Throttler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Throttler{
		RateKBps:    rateKBps,
		Clock:       clk,
		Running:     running,
		recvManager: capture.NewManager(recvDrv),
		sendManager: capture.NewManager(sendDrv),
		queue:       make(chan queuedPacket, 4096),
	}
}

// Run opens both handles, starts the receiver and sender loops, and blocks
// until Running is cleared and both have drained.
func (t *Throttler) Run(filter string) error {
	if err := t.recvManager.Open(capture.HandleConfig{Filter: filter, Priority: -1000}); err != nil {
		return err
	}
	if err := t.sendManager.Open(capture.HandleConfig{Filter: "false", Priority: -1000}); err != nil {
		t.recvManager.Close()
		return err
	}

	done := make(chan struct{})
	go func() {
		t.receiveLoop()
		close(done)
	}()

	session := timer.Begin(1 * time.Millisecond)
	defer session.End()

	t.sendLoop()
	<-done

	t.recvManager.Close()
	t.sendManager.Close()
	return nil
}

func (t *Throttler) receiveLoop() {
	for t.Running.Load() {
		hnd, ok := t.recvManager.Handle()
		if !ok {
			return
		}
		pkt, err := hnd.Recv()
		if err != nil {
			if !t.Running.Load() {
				return
			}
			log.GetLogger().WithError(err).Debug("throttler: recv failed, continuing")
			continue
		}
		if pkt.Size() < MinPayloadThreshold {
			if sendHnd, ok := t.sendManager.Handle(); ok {
				_ = sendHnd.Send(pkt)
			}
			continue
		}
		select {
		case t.queue <- queuedPacket{pkt: pkt, queuedAt: t.Clock.Now()}:
		default:
			log.GetLogger().Warn("throttler: queue full, dropping packet")
		}
	}
}

func (t *Throttler) sendLoop() {
	rate := t.RateKBps * 1024 // bytes/sec
	burst := rate * 8
	cap_ := rate * 4
	tokens := burst
	if tokens > cap_ {
		tokens = cap_
	}
	lastRefill := t.Clock.Now()

	for t.Running.Load() || len(t.queue) > 0 {
		now := t.Clock.Now()
		elapsed := now.Sub(lastRefill).Seconds()
		tokens += rate * elapsed
		if tokens > cap_ {
			tokens = cap_
		}
		lastRefill = now

		released := t.releaseReady(&tokens, now)

		if released {
			time.Sleep(sleepAfterRelease)
		} else {
			if !t.Running.Load() && len(t.queue) == 0 {
				return
			}
			time.Sleep(sleepIdle)
		}
	}
	t.flush()
}

func (t *Throttler) releaseReady(tokens *float64, now time.Time) bool {
	select {
	case q := <-t.queue:
		size := float64(q.pkt.Size())
		if now.Sub(q.queuedAt) >= AgeCeiling || *tokens >= size {
			if *tokens >= size {
				*tokens -= size
			}
			t.sendOne(q.pkt)
			return true
		}
		// Not enough tokens and not aged out: put it back and wait.
		select {
		case t.queue <- q:
		default:
			t.sendOne(q.pkt)
		}
		return false
	default:
		return false
	}
}

func (t *Throttler) sendOne(pkt *packet.Packet) {
	hnd, ok := t.sendManager.Handle()
	if !ok {
		return
	}
	if err := hnd.Send(pkt); err != nil {
		log.GetLogger().WithError(err).Debug("throttler: send failed, dropping packet")
	}
}

// flush releases every remaining queued packet through the handle before
// shutdown, regardless of token availability.
func (t *Throttler) flush() {
	for {
		select {
		case q := <-t.queue:
			t.sendOne(q.pkt)
		default:
			return
		}
	}
}
