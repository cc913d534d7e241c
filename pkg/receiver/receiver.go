// Package receiver implements the capture-side loop: it reads
// the shared filter under a lock, reopens the handle on change, and
// forwards received packets over a channel to the pipeline processor.
package receiver

import (
	"sync"
	"sync/atomic"

	"netsim/internal/log"
	"netsim/pkg/capture"
	"netsim/pkg/packet"
)

// FilterSource is the shared, mutex-protected filter string the receiver
// polls every iteration.
type FilterSource struct {
	mu     sync.Mutex
	filter string
}

// NewFilterSource returns a FilterSource initialized to s.
func NewFilterSource(s string) *FilterSource {
	return &FilterSource{filter: s}
}

// Get reads the current filter under lock.
func (f *FilterSource) Get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// Set replaces the current filter under lock.
func (f *FilterSource) Set(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = s
}

// Receiver runs the receive loop until Running is cleared.
type Receiver struct {
	Manager *capture.Manager
	Filter  *FilterSource
	Out     chan<- *packet.Packet
	Running *atomic.Bool

	lastFilter string
	handleOpen bool
}

// New returns a Receiver that reads from mgr and publishes onto out.
func New(mgr *capture.Manager, filter *FilterSource, out chan<- *packet.Packet, running *atomic.Bool) *Receiver {
	return &Receiver{Manager: mgr, Filter: filter, Out: out, Running: running, lastFilter: "\x00uninitialized"}
}

// Run blocks until Running is cleared, then closes the handle and returns.
// Running is checked between Recv calls, so a Run blocked in Recv returns
// only after that Recv does (a packet arrives or the handle is closed).
func (r *Receiver) Run() {
	defer r.shutdown()

	for r.Running.Load() {
		current := r.Filter.Get()
		if current != r.lastFilter {
			if err := r.Manager.UpdateFilter(current); err != nil {
				log.GetLogger().WithField("filter", current).WithError(err).Error("receiver: failed to reopen handle for filter change")
				continue
			}
			r.lastFilter = current
			r.handleOpen = true
		}

		if !r.handleOpen {
			continue
		}

		hnd, ok := r.Manager.Handle()
		if !ok {
			r.handleOpen = false
			continue
		}

		pkt, err := hnd.Recv()
		if err != nil {
			if !r.Running.Load() {
				return
			}
			log.GetLogger().WithError(err).Debug("receiver: recv failed, continuing")
			continue
		}

		select {
		case r.Out <- pkt:
		default:
			if !r.Running.Load() {
				return
			}
			r.Out <- pkt
		}
	}
}

func (r *Receiver) shutdown() {
	if err := r.Manager.Close(); err != nil {
		log.GetLogger().WithError(err).Warn("receiver: error closing handle on shutdown")
	}
}
