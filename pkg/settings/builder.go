package settings

import "netsim/pkg/probability"

// Builder is the fluent settings constructor. Every method
// returns the builder itself; out-of-range percentages default silently to
// 0.0 via probability.FromPercent, so the builder never fails.
type Builder struct {
	s Settings
}

// NewBuilder returns a Builder seeded with Default().
func NewBuilder() *Builder {
	return &Builder{s: Default()}
}

// Drop enables the drop module with the given drop chance, in percent.
func (b *Builder) Drop(chancePct float64) *Builder {
	b.s.Drop.Common.Enabled = true
	b.s.Drop.Common.Inbound = true
	b.s.Drop.Common.Outbound = true
	b.s.Drop.Common.Probability = pct(chancePct)
	return b
}

// Lag enables the lag module with the given delay in milliseconds.
func (b *Builder) Lag(ms uint64) *Builder {
	b.s.Lag.Common.Enabled = true
	b.s.Lag.Common.Inbound = true
	b.s.Lag.Common.Outbound = true
	b.s.Lag.LagMs = ms
	return b
}

func (b *Builder) WithLagChance(pct_ float64) *Builder {
	b.s.Lag.Common.Probability = pct(pct_)
	return b
}

func (b *Builder) WithLagDuration(ms uint64) *Builder {
	b.s.Lag.Common.DurationMs = ms
	return b
}

// Throttle enables the throttle module with the given cycle duration.
func (b *Builder) Throttle(ms uint64) *Builder {
	b.s.Throttle.Common.Enabled = true
	b.s.Throttle.Common.Inbound = true
	b.s.Throttle.Common.Outbound = true
	b.s.Throttle.ThrottleMs = ms
	return b
}

func (b *Builder) WithThrottleChance(pct_ float64) *Builder {
	b.s.Throttle.Common.Probability = pct(pct_)
	return b
}

func (b *Builder) WithThrottleDrop(drop bool) *Builder {
	b.s.Throttle.Drop = drop
	return b
}

// Reorder enables the reorder module with the given max delay window.
func (b *Builder) Reorder(maxDelayMs uint64) *Builder {
	b.s.Reorder.Common.Enabled = true
	b.s.Reorder.Common.Inbound = true
	b.s.Reorder.Common.Outbound = true
	b.s.Reorder.MaxDelayMs = maxDelayMs
	return b
}

func (b *Builder) WithReorderChance(pct_ float64) *Builder {
	b.s.Reorder.Common.Probability = pct(pct_)
	return b
}

// Tamper enables the tamper module with the given tamper chance, in percent.
func (b *Builder) Tamper(chancePct float64) *Builder {
	b.s.Tamper.Common.Enabled = true
	b.s.Tamper.Common.Inbound = true
	b.s.Tamper.Common.Outbound = true
	b.s.Tamper.Common.Probability = pct(chancePct)
	return b
}

func (b *Builder) WithTamperAmount(pct_ float64) *Builder {
	b.s.Tamper.Amount = pct_ / 100.0
	if b.s.Tamper.Amount < 0 || b.s.Tamper.Amount > 1 {
		b.s.Tamper.Amount = 0
	}
	return b
}

func (b *Builder) WithTamperChecksums(recalc bool) *Builder {
	b.s.Tamper.RecalculateChecksums = recalc
	return b
}

// Duplicate enables the duplicate module with the given clone count.
func (b *Builder) Duplicate(count int) *Builder {
	b.s.Duplicate.Common.Enabled = true
	b.s.Duplicate.Common.Inbound = true
	b.s.Duplicate.Common.Outbound = true
	b.s.Duplicate.Count = count
	return b
}

func (b *Builder) WithDuplicateChance(pct_ float64) *Builder {
	b.s.Duplicate.Common.Probability = pct(pct_)
	return b
}

// Bandwidth enables the inline bandwidth module with the given limit.
func (b *Builder) Bandwidth(limitKbps float64) *Builder {
	b.s.Bandwidth.Common.Enabled = true
	b.s.Bandwidth.Common.Inbound = true
	b.s.Bandwidth.Common.Outbound = true
	b.s.Bandwidth.LimitKbps = limitKbps
	return b
}

func (b *Builder) WithBandwidthChance(pct_ float64) *Builder {
	b.s.Bandwidth.Common.Probability = pct(pct_)
	return b
}

// Clear resets every module back to disabled defaults.
func (b *Builder) Clear() *Builder {
	b.s = Default()
	return b
}

// Build returns the accumulated Settings.
func (b *Builder) Build() Settings {
	return b.s
}

func pct(p float64) probability.Probability {
	return probability.FromPercent(p)
}
