package capture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/pkg/capture"
	"netsim/pkg/driver/fake"
)

func TestManager_OpenAndHandle(t *testing.T) {
	drv := fake.New(nil, 4)
	m := capture.NewManager(drv)

	_, ok := m.Handle()
	assert.False(t, ok, "unopened manager reports no handle")

	require.NoError(t, m.Open(capture.HandleConfig{Filter: "true"}))
	h, ok := m.Handle()
	require.True(t, ok)
	assert.Same(t, drv, h)
}

func TestManager_UpdateFilter_NoopOnSameFilter(t *testing.T) {
	drv := fake.New(nil, 4)
	m := capture.NewManager(drv)
	require.NoError(t, m.Open(capture.HandleConfig{Filter: "tcp"}))

	require.NoError(t, m.UpdateFilter("tcp"))
	_, ok := m.Handle()
	assert.True(t, ok)
}

func TestManager_UpdateFilter_ReopensOnChange(t *testing.T) {
	drv := fake.New(nil, 4)
	m := capture.NewManager(drv)
	require.NoError(t, m.Open(capture.HandleConfig{Filter: "tcp"}))
	require.NoError(t, m.UpdateFilter("udp"))

	_, ok := m.Handle()
	assert.True(t, ok, "manager should still hold an open handle after reopening with a new filter")
}

func TestManager_Close_IsIdempotent(t *testing.T) {
	drv := fake.New(nil, 4)
	m := capture.NewManager(drv)
	require.NoError(t, m.Open(capture.HandleConfig{Filter: "true"}))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "closing an already-closed manager must be a no-op")

	_, ok := m.Handle()
	assert.False(t, ok)
}

func TestManager_ExcludeControlPort_OpensHandle(t *testing.T) {
	drv := fake.New(nil, 4)
	m := capture.NewManager(drv)
	require.NoError(t, m.Open(capture.HandleConfig{Filter: "tcp", ExcludeControlPort: true}))
	_, ok := m.Handle()
	assert.True(t, ok)
}

func TestManager_ImpossibleDirection_IsNotRejected(t *testing.T) {
	drv := fake.New(nil, 4)
	m := capture.NewManager(drv)
	err := m.Open(capture.HandleConfig{Filter: "outbound and inbound"})
	assert.NoError(t, err, "an impossible direction filter is substituted with true, not rejected")
}
