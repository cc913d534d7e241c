// Package stats implements the per-impairment counters and the shared EWMA
// smoother. Stats is written by the impairment modules and read by the
// status query; the whole struct is protected by a single RWMutex — many
// readers via get_status, few writers via module ticks.
package stats

import "sync"

// EWMA is an exponentially weighted moving average. The zero value is
// "undefined until the first sample".
type EWMA struct {
	Alpha float64
	value float64
	set   bool
}

// NewEWMA returns an EWMA with smoothing factor alpha in (0,1].
func NewEWMA(alpha float64) EWMA {
	return EWMA{Alpha: alpha}
}

// Update applies s ← s·(1−α) + x·α, seeding s on the first sample.
func (e *EWMA) Update(x float64) {
	if !e.set {
		e.value = x
		e.set = true
		return
	}
	e.value = e.value*(1-e.Alpha) + x*e.Alpha
}

// Value returns the current smoothed value and whether any sample has been
// recorded yet.
func (e *EWMA) Value() (float64, bool) { return e.value, e.set }

// DropStats mirrors the drop module's counters.
type DropStats struct {
	Total   uint64
	Dropped uint64
	Rate    EWMA // EWMA of 0/1 drop outcome
}

// LagStats mirrors the lag module's queue counters.
type LagStats struct {
	QueueLength int
	MaxObserved int
	Cycles      uint64
}

// ThrottleStats mirrors the throttle module's cycle state.
type ThrottleStats struct {
	IsThrottling   bool
	DroppedCount   uint64
	BufferedCount  int
}

// ReorderStats mirrors the reorder module's heap counters.
type ReorderStats struct {
	Total        uint64
	Reordered    uint64
	DelayedInHeap int
	Rate         EWMA
}

// TamperStats mirrors the tamper module's last-affected-packet snapshot.
type TamperStats struct {
	LastPayloadSnapshot []byte
	TamperedByteFlags   []bool
	ChecksumValid       bool
	lastRefresh         int64 // unix nanos of last snapshot update (refresh-rate-limited)
}

// DuplicateStats mirrors the duplicate module's counters.
type DuplicateStats struct {
	Incoming  uint64
	Outgoing  uint64
	Multiplier EWMA
}

// BandwidthStats mirrors the bandwidth module's token-bucket counters.
type BandwidthStats struct {
	BufferedPackets int
	TotalBytesSent  uint64
	RateKBps        EWMA // updated on every bandwidth Apply call, not on a fixed interval
}

// BurstStats mirrors the burst module's buffer counters.
type BurstStats struct {
	Buffered          int
	ReleasedThisCycle int
	CurrentBufferSize int
}

// Stats is the full substrate for one pipeline's impairment modules.
type Stats struct {
	mu sync.RWMutex

	Drop      DropStats
	Lag       LagStats
	Throttle  ThrottleStats
	Reorder   ReorderStats
	Tamper    TamperStats
	Duplicate DuplicateStats
	Bandwidth BandwidthStats
	Burst     BurstStats
}

// New returns a Stats substrate with its EWMAs configured to sensible
// smoothing factors.
func New() *Stats {
	return &Stats{
		Drop:      DropStats{Rate: NewEWMA(0.2)},
		Reorder:   ReorderStats{Rate: NewEWMA(0.2)},
		Duplicate: DuplicateStats{Multiplier: NewEWMA(0.2)},
		Bandwidth: BandwidthStats{RateKBps: NewEWMA(0.3)},
	}
}

// WithWrite runs fn while holding the write lock, for module ticks that
// mutate counters.
func (s *Stats) WithWrite(fn func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Snapshot returns a copy of the stats suitable for get_status, taken under
// the read lock.
func (s *Stats) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s
	cp.mu = sync.RWMutex{}
	// Defensive copy of the tamper payload snapshot slice.
	if s.Tamper.LastPayloadSnapshot != nil {
		cp.Tamper.LastPayloadSnapshot = append([]byte(nil), s.Tamper.LastPayloadSnapshot...)
	}
	if s.Tamper.TamperedByteFlags != nil {
		cp.Tamper.TamperedByteFlags = append([]bool(nil), s.Tamper.TamperedByteFlags...)
	}
	return cp
}

// RefreshTamperSnapshot records a new tamper payload snapshot unless one was
// already recorded within minIntervalNanos (the "refresh-rate-limited"
// behavior the tamper module relies on to avoid churning the snapshot).
func (t *TamperStats) RefreshTamperSnapshot(nowUnixNano int64, minIntervalNanos int64, payload []byte, flags []bool, checksumValid bool) {
	if t.lastRefresh != 0 && nowUnixNano-t.lastRefresh < minIntervalNanos {
		return
	}
	t.lastRefresh = nowUnixNano
	t.LastPayloadSnapshot = append([]byte(nil), payload...)
	t.TamperedByteFlags = append([]bool(nil), flags...)
	t.ChecksumValid = checksumValid
}
