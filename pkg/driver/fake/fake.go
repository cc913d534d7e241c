// Package fake implements an in-memory driver.Driver for unit and scenario
// tests — no kernel, no BPF, just two channels a test can push packets into
// and assert on what comes out the other side.
package fake

import (
	"sync"

	"netsim/pkg/clock"
	"netsim/pkg/driver"
	"netsim/pkg/neterr"
	"netsim/pkg/packet"
)

// Driver is a channel-backed driver.Driver. Tests feed it inbound packets
// via Inject and read re-injected packets off Sent.
type Driver struct {
	Clock clock.Clock

	mu     sync.Mutex
	open   bool
	cfg    driver.Config
	inbox  chan *packet.Packet
	closed chan struct{}
	Sent   chan *packet.Packet
}

// New returns a closed fake Driver with the given inbox/outbox buffer depth.
func New(clk clock.Clock, bufSize int) *Driver {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Driver{
		Clock: clk,
		inbox: make(chan *packet.Packet, bufSize),
		Sent:  make(chan *packet.Packet, bufSize),
	}
}

// Open marks the driver open and records cfg. Reopening replaces cfg
// without losing already-queued packets.
func (d *Driver) Open(cfg driver.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	if !d.open {
		d.closed = make(chan struct{})
	}
	d.open = true
	return nil
}

// Inject enqueues p as an inbound packet, as if received by the backend.
func (d *Driver) Inject(p *packet.Packet) {
	d.inbox <- p
}

// Recv blocks for the next injected packet, returning neterr.ErrDriver if
// the driver is closed or gets closed while Recv waits.
func (d *Driver) Recv() (*packet.Packet, error) {
	d.mu.Lock()
	open, closed := d.open, d.closed
	d.mu.Unlock()
	if !open {
		return nil, neterr.Driver(errClosed{})
	}
	select {
	case p := <-d.inbox:
		return p, nil
	case <-closed:
		return nil, neterr.Driver(errClosed{})
	}
}

// Send records p on the Sent channel, simulating re-injection.
func (d *Driver) Send(p *packet.Packet) error {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()
	if !open {
		return neterr.Driver(errClosed{})
	}
	d.Sent <- p
	return nil
}

// Close marks the driver closed so a blocked Recv returns; packets still
// queued in the inbox remain for the next Open.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	d.open = false
	close(d.closed)
	return nil
}

// SetParam records queue tunables; the fake driver has no real queue so
// this only updates cfg for assertions.
func (d *Driver) SetParam(name string, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch name {
	case "queue_length":
		d.cfg.QueueLength = value
	case "queue_time_ms":
		d.cfg.QueueTimeMillis = value
	default:
		return neterr.ErrDriver
	}
	return nil
}

type errClosed struct{}

func (errClosed) Error() string { return "fake driver closed" }
