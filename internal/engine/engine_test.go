package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/internal/config"
	"netsim/internal/engine"
	"netsim/pkg/driver"
	"netsim/pkg/driver/fake"
	"netsim/pkg/neterr"
	"netsim/pkg/settings"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store, err := config.NewStore(t.TempDir())
	require.NoError(t, err)
	newDrv := func(purpose string) driver.Driver { return fake.New(nil, 64) }
	return engine.New(store, nil, newDrv)
}

func TestStartProcessing_RejectsDoubleStart(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.StartProcessing(settings.Default(), ""))
	defer e.StopProcessing()

	err := e.StartProcessing(settings.Default(), "")
	assert.ErrorIs(t, err, neterr.ErrAlreadyRunning)
}

func TestStopProcessing_RejectsWhenNotRunning(t *testing.T) {
	e := newTestEngine(t)
	err := e.StopProcessing()
	assert.ErrorIs(t, err, neterr.ErrNotRunning)
}

func TestStartStopProcessing_TogglesRunning(t *testing.T) {
	e := newTestEngine(t)
	assert.False(t, e.Running())

	require.NoError(t, e.StartProcessing(settings.Default(), "tcp"))
	assert.True(t, e.Running())
	assert.Equal(t, "tcp", e.Filter())

	require.NoError(t, e.StopProcessing())
	assert.False(t, e.Running())
}

func TestUpdateFilter_RecordsHistory(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.UpdateFilter("udp"))
	assert.Equal(t, "udp", e.Filter())

	hist, err := e.Store.FilterHistory()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "udp", hist[0])
}

func TestUpdateSettings_ReplacesSharedSettings(t *testing.T) {
	e := newTestEngine(t)
	s := settings.NewBuilder().Drop(50).Build()
	e.UpdateSettings(s)
	assert.True(t, e.Settings().Drop.Common.Enabled)
}

func TestTCBandwidth_StartStatusStop(t *testing.T) {
	e := newTestEngine(t)

	active, _, _ := e.TCBandwidthStatus()
	assert.False(t, active)

	require.NoError(t, e.StartTCBandwidth(100, "tcp"))
	defer e.StopTCBandwidth()

	active, limit, filter := e.TCBandwidthStatus()
	assert.True(t, active)
	assert.Equal(t, 100.0, limit)
	assert.Equal(t, "tcp", filter)

	err := e.StartTCBandwidth(200, "udp")
	assert.ErrorIs(t, err, neterr.ErrAlreadyRunning)

	require.NoError(t, e.StopTCBandwidth())
	active, _, _ = e.TCBandwidthStatus()
	assert.False(t, active)

	err = e.StopTCBandwidth()
	assert.ErrorIs(t, err, neterr.ErrNotRunning)
}

func TestStatsSnapshot_StartsZeroed(t *testing.T) {
	e := newTestEngine(t)
	snap := e.StatsSnapshot()
	assert.Equal(t, uint64(0), snap.Drop.Total)
}

func TestStartProcessing_SessionIsUsable(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.StartProcessing(settings.Default(), ""))
	defer e.StopProcessing()

	// give the receiver/pipeline goroutines a moment to settle into their
	// run loops before tearing the session back down.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, e.Running())
}
