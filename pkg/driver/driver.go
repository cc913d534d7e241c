// Package driver defines the abstraction standing in for the kernel-level
// diversion driver named in spec.md §1 — the real thing is platform-specific
// and out of scope here, so the pipeline (G) and receiver (E) only ever see
// this interface, letting tests run against pkg/driver/fake and demos run
// against pkg/driver/pcapdriver.
package driver

import "netsim/pkg/packet"

// Config carries the parameters needed to open a diversion handle: the
// filter expression and the queue tuning values a handle opens with.
type Config struct {
	Filter          string
	QueueLength     uint64 // driver-side queue depth, in packets
	QueueTimeMillis uint64 // driver-side queue time budget
}

// Driver is the capture/re-injection backend the receiver (E) and pipeline
// (G) operate against.
type Driver interface {
	// Open establishes a diversion handle for cfg. Calling Open on an
	// already-open Driver must close the previous handle first.
	Open(cfg Config) error

	// Recv blocks until a packet is available and returns an owned Packet.
	// It returns an error wrapping neterr.ErrDriver if the handle is closed
	// or the underlying read fails.
	Recv() (*packet.Packet, error)

	// Send re-injects p. It returns an error wrapping neterr.ErrDriver on
	// failure.
	Send(p *packet.Packet) error

	// Close releases the handle. Close on an already-closed Driver is a
	// no-op.
	Close() error

	// SetParam adjusts a driver-specific tunable (queue length, queue
	// time) without a full reopen, where the backend supports it.
	SetParam(name string, value uint64) error
}
