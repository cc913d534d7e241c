// Package capture manages the lifecycle of a diversion driver handle:
// opening, reopening on filter change, and the driver-cache-flush dance
// needed to evict stale kernel filter state.
package capture

import (
	"strconv"
	"strings"

	"netsim/internal/log"
	"netsim/pkg/driver"
	"netsim/pkg/neterr"
)

// HandleConfig is the handle manager's view of a filter, mirroring a
// driver's open() parameters.
type HandleConfig struct {
	Filter             string
	Priority           int
	RecvOnly           bool
	ExcludeControlPort bool
}

// ControlPort is the reference GUI's loopback command port, excluded from
// capture when ExcludeControlPort is set.
const ControlPort = 1420

// QueueLength and QueueTime are the fixed driver queue tuning values every
// handle opens with.
const (
	QueueLength     = 2048
	QueueTimeMillis = 1024
)

// Manager owns a single Driver instance across opens, reopens, and closes.
type Manager struct {
	drv Driver
	cfg HandleConfig
	open bool
}

// Driver is the subset of driver.Driver the handle manager drives directly;
// named separately so tests can supply a minimal fake.
type Driver = driver.Driver

// NewManager returns a Manager bound to drv, initially closed.
func NewManager(drv Driver) *Manager {
	return &Manager{drv: drv}
}

// Open composes the effective filter from cfg, flushes the driver cache,
// opens the handle, and flushes again on failure.
func (m *Manager) Open(cfg HandleConfig) error {
	flushCache(m.drv)

	effective := composeFilter(cfg)
	dcfg := driver.Config{
		Filter:          effective,
		QueueLength:     QueueLength,
		QueueTimeMillis: QueueTimeMillis,
	}
	if err := m.drv.Open(dcfg); err != nil {
		flushCache(m.drv)
		return neterr.Driver(err)
	}
	m.cfg = cfg
	m.open = true
	return nil
}

// UpdateFilter reopens the handle with a new filter string, unless s equals
// the currently-configured filter (a no-op).
func (m *Manager) UpdateFilter(s string) error {
	if m.open && s == m.cfg.Filter {
		return nil
	}
	cfg := m.cfg
	cfg.Filter = s
	return m.Open(cfg)
}

// Close releases the handle and flushes the driver cache. Closing an
// already-closed Manager is a no-op.
func (m *Manager) Close() error {
	if !m.open {
		return nil
	}
	err := m.drv.Close()
	m.open = false
	flushCache(m.drv)
	if err != nil {
		return neterr.Driver(err)
	}
	return nil
}

// Handle reports whether the manager currently holds an open handle.
func (m *Manager) Handle() (Driver, bool) {
	if !m.open {
		return nil, false
	}
	return m.drv, true
}

// composeFilter applies two rewrites: appending the
// control-port exclusion, and substituting the impossible
// "outbound and inbound" conjunction with "true" (with a warning).
func composeFilter(cfg HandleConfig) string {
	expr := cfg.Filter

	if containsImpossibleDirection(expr) {
		log.GetLogger().WithField("filter", expr).Warn("filter requires outbound and inbound simultaneously; substituting true")
		expr = "true"
	}

	if cfg.ExcludeControlPort {
		exclusion := portExclusion(ControlPort)
		if expr == "" {
			expr = exclusion
		} else {
			expr = "(" + expr + ") and " + exclusion
		}
	}

	return expr
}

func portExclusion(port int) string {
	p := strconv.Itoa(port)
	return "localPort != " + p + " and remotePort != " + p
}

func containsImpossibleDirection(expr string) bool {
	normalized := strings.Join(strings.Fields(expr), " ")
	return strings.Contains(normalized, "outbound and inbound") ||
		strings.Contains(normalized, "inbound and outbound")
}

// flushCache evicts stale filter state from the driver by opening a handle
// with the no-match filter "false" three times and closing each. The
// priorities 0, 1000 and -1000 appear only in the log fields: driver.Config
// carries no priority, so the three opens are identical. Errors are logged but not fatal; a best-effort flush is all that's
// needed here.
func flushCache(drv Driver) {
	for _, priority := range []int{0, 1000, -1000} {
		cfg := driver.Config{Filter: "false", QueueLength: QueueLength, QueueTimeMillis: QueueTimeMillis}
		if err := drv.Open(cfg); err != nil {
			log.GetLogger().WithField("priority", priority).WithError(err).Debug("cache flush open failed")
			continue
		}
		if err := drv.Close(); err != nil {
			log.GetLogger().WithField("priority", priority).WithError(err).Debug("cache flush close failed")
		}
	}
}
