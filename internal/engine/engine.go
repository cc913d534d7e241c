// Package engine wires the capture/pipeline/throttler packages into the
// single running session the external command surface starts, stops, and
// inspects.
package engine

import (
	"sync/atomic"
	"time"

	"netsim/internal/config"
	"netsim/internal/log"
	"netsim/pkg/capture"
	"netsim/pkg/clock"
	"netsim/pkg/driver"
	"netsim/pkg/neterr"
	"netsim/pkg/packet"
	"netsim/pkg/pipeline"
	"netsim/pkg/receiver"
	"netsim/pkg/settings"
	"netsim/pkg/stats"
	"netsim/pkg/throttler"
)

// DriverFactory returns a fresh Driver for a given purpose ("recv", "send",
// "throttle-recv", "throttle-send") — engine is transport-agnostic and lets
// cmd/daemon.go decide between pkg/driver/fake and pkg/driver/pcapdriver.
type DriverFactory func(purpose string) driver.Driver

// Engine holds the shared state the command surface mutates and observes.
type Engine struct {
	Store   *config.Store
	Clock   clock.Clock
	NewDrv  DriverFactory

	settingsSrc *pipeline.SettingsSource
	filterSrc   *receiver.FilterSource
	stats       *stats.Stats
	running     atomic.Bool

	channel chan *packet.Packet
	done    chan struct{}

	tcBandwidth tcBandwidthState
}

type tcBandwidthState struct {
	active    bool
	limitKbps float64
	filter    string
	running   atomic.Bool
	done      chan struct{}
}

// New returns an Engine with default settings and no active session.
func New(store *config.Store, clk clock.Clock, newDrv DriverFactory) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		Store:       store,
		Clock:       clk,
		NewDrv:      newDrv,
		settingsSrc: pipeline.NewSettingsSource(settings.Default()),
		filterSrc:   receiver.NewFilterSource(""),
		stats:       stats.New(),
	}
}

// StartProcessing begins a capture/pipeline session. Fails with
// neterr.ErrAlreadyRunning if a session is already active.
func (e *Engine) StartProcessing(s settings.Settings, filter string) error {
	if e.running.Load() {
		return neterr.ErrAlreadyRunning
	}

	e.settingsSrc.Replace(s)
	e.filterSrc.Set(filter)
	e.running.Store(true)

	e.channel = make(chan *packet.Packet, 4096)
	e.done = make(chan struct{})

	recvMgr := capture.NewManager(e.NewDrv("recv"))
	rx := receiver.New(recvMgr, e.filterSrc, e.channel, &e.running)

	proc := pipeline.New(e.channel, e.settingsSrc, e.stats, e.Clock, &e.running, e.NewDrv("send"))

	go func() {
		rx.Run()
	}()
	go func() {
		defer close(e.done)
		if err := proc.Run(); err != nil {
			log.GetLogger().WithError(err).Error("pipeline processor exited with error")
		}
	}()

	return nil
}

// StopProcessing runs the stop sequence: clear the filter, sleep for
// propagation, clear running, sleep for drain, then flush the driver
// cache. Fails with neterr.ErrNotRunning if no session is active.
func (e *Engine) StopProcessing() error {
	if !e.running.Load() {
		return neterr.ErrNotRunning
	}

	e.filterSrc.Set("")
	time.Sleep(100 * time.Millisecond)
	e.running.Store(false)
	time.Sleep(500 * time.Millisecond)

	if e.done != nil {
		<-e.done
	}

	flushMgr := capture.NewManager(e.NewDrv("flush"))
	flushMgr.Open(capture.HandleConfig{Filter: "false"})
	flushMgr.Close()

	return nil
}

// Running reports whether a processing session is active.
func (e *Engine) Running() bool { return e.running.Load() }

// StatsSnapshot returns a copy of the current stats substrate.
func (e *Engine) StatsSnapshot() stats.Stats { return e.stats.Snapshot() }

// Settings returns the current settings.
func (e *Engine) Settings() settings.Settings { return e.settingsSrc.Get() }

// UpdateSettings atomically replaces the shared settings.
func (e *Engine) UpdateSettings(s settings.Settings) { e.settingsSrc.Replace(s) }

// Filter returns the current filter string, or "" if unset.
func (e *Engine) Filter() string { return e.filterSrc.Get() }

// UpdateFilter replaces the current filter string and records it in the
// saved filter history.
func (e *Engine) UpdateFilter(filter string) error {
	e.filterSrc.Set(filter)
	if filter != "" && e.Store != nil {
		return e.Store.RecordFilter(filter)
	}
	return nil
}

// StartTCBandwidth starts the standalone throttler sender, selected
// instead of the inline bandwidth module when a caller wants a
// precise token-bucket limiter independent of the main pipeline. Fails with
// neterr.ErrAlreadyRunning if a TC bandwidth session is already active.
func (e *Engine) StartTCBandwidth(limitKbps float64, filter string) error {
	if e.tcBandwidth.running.Load() {
		return neterr.ErrAlreadyRunning
	}

	e.tcBandwidth.running.Store(true)
	e.tcBandwidth.active = true
	e.tcBandwidth.limitKbps = limitKbps
	e.tcBandwidth.filter = filter
	e.tcBandwidth.done = make(chan struct{})

	th := throttler.New(limitKbps, e.Clock, &e.tcBandwidth.running, e.NewDrv("throttle-recv"), e.NewDrv("throttle-send"))

	go func() {
		defer close(e.tcBandwidth.done)
		if err := th.Run(filter); err != nil {
			log.GetLogger().WithError(err).Error("throttler exited with error")
		}
	}()

	return nil
}

// StopTCBandwidth stops a running throttler session. Fails with
// neterr.ErrNotRunning if no TC bandwidth session is active.
func (e *Engine) StopTCBandwidth() error {
	if !e.tcBandwidth.running.Load() {
		return neterr.ErrNotRunning
	}
	e.tcBandwidth.running.Store(false)
	if e.tcBandwidth.done != nil {
		<-e.tcBandwidth.done
	}
	e.tcBandwidth.active = false
	return nil
}

// TCBandwidthStatus reports whether a throttler session is active and, if
// so, its configured rate and filter.
func (e *Engine) TCBandwidthStatus() (active bool, limitKbps float64, filter string) {
	return e.tcBandwidth.active, e.tcBandwidth.limitKbps, e.tcBandwidth.filter
}
