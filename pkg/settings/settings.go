// Package settings implements the per-module impairment options, the global
// Settings record, and the fluent builder.
package settings

import "netsim/pkg/probability"

// Common holds the fields every impairment module shares.
type Common struct {
	Enabled     bool
	Inbound     bool
	Outbound    bool
	Probability probability.Probability
	DurationMs  uint64 // 0 => infinite
}

// ProbabilityPercent returns the probability scaled back to a 0-100 percent,
// the unit config.Store's on-disk format uses.
func (c Common) ProbabilityPercent() float64 {
	return c.Probability.Value() * 100
}

// DropOptions has no fields beyond Common.
type DropOptions struct {
	Common
}

// LagOptions delays matching packets by LagMs.
type LagOptions struct {
	Common
	LagMs uint64
}

// ThrottleOptions gates packets into timed cycles.
type ThrottleOptions struct {
	Common
	ThrottleMs uint64
	Drop       bool
	MaxBuffer  int
	Freeze     bool
}

// ReorderOptions delays packets by a uniformly sampled amount.
type ReorderOptions struct {
	Common
	MaxDelayMs uint64
}

// TamperOptions corrupts payload bytes.
type TamperOptions struct {
	Common
	Amount             float64 // fraction of payload bytes to tamper, [0,1]
	RecalculateChecksums bool
}

// DuplicateOptions clones matching packets.
type DuplicateOptions struct {
	Common
	Count int
}

// BandwidthOptions token-bucket limits throughput.
type BandwidthOptions struct {
	Common
	LimitKbps            float64
	PassthroughThreshold int
	UseWFP                bool // stored and persisted with profiles; the pipeline and engine do not read it
}

// BurstOptions buffers and replays packets ("lag switch").
type BurstOptions struct {
	Common
	BufferMs      uint64 // 0 => manual mode
	ReplaySpeed   float64
	ReverseReplay bool
}

// Settings is the full per-process configuration: one options struct per
// module plus the lag_bypass hint.
type Settings struct {
	Drop      DropOptions
	Lag       LagOptions
	Throttle  ThrottleOptions
	Reorder   ReorderOptions
	Tamper    TamperOptions
	Duplicate DuplicateOptions
	Bandwidth BandwidthOptions
	Burst     BurstOptions
	LagBypass bool
}

// Default returns a Settings with every module disabled.
func Default() Settings {
	return Settings{
		Tamper: TamperOptions{Amount: 0.1, RecalculateChecksums: true},
	}
}
