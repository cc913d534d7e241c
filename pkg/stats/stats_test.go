package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/pkg/stats"
)

func TestEWMA_SeedsOnFirstSample(t *testing.T) {
	e := stats.NewEWMA(0.5)
	_, set := e.Value()
	assert.False(t, set)

	e.Update(10)
	v, set := e.Value()
	require.True(t, set)
	assert.Equal(t, 10.0, v)
}

func TestEWMA_SmoothsSubsequentSamples(t *testing.T) {
	e := stats.NewEWMA(0.5)
	e.Update(10)
	e.Update(20)
	v, _ := e.Value()
	assert.Equal(t, 15.0, v)
}

func TestStats_WithWriteIsVisibleInSnapshot(t *testing.T) {
	s := stats.New()
	s.WithWrite(func(st *stats.Stats) {
		st.Drop.Total = 5
		st.Drop.Dropped = 2
	})

	snap := s.Snapshot()
	assert.Equal(t, uint64(5), snap.Drop.Total)
	assert.Equal(t, uint64(2), snap.Drop.Dropped)
}

func TestStats_SnapshotTamperSliceIsIndependentCopy(t *testing.T) {
	s := stats.New()
	s.WithWrite(func(st *stats.Stats) {
		st.Tamper.RefreshTamperSnapshot(1000, 0, []byte{1, 2, 3}, []bool{true, false, true}, true)
	})

	snap := s.Snapshot()
	snap.Tamper.LastPayloadSnapshot[0] = 0xff

	original := s.Snapshot()
	assert.Equal(t, byte(1), original.Tamper.LastPayloadSnapshot[0], "mutating a snapshot must not affect the live stats")
}

func TestTamperStats_RefreshIsRateLimited(t *testing.T) {
	var ts stats.TamperStats
	ts.RefreshTamperSnapshot(1000, 500, []byte{1}, []bool{true}, true)
	ts.RefreshTamperSnapshot(1200, 500, []byte{2}, []bool{false}, false)

	assert.Equal(t, []byte{1}, ts.LastPayloadSnapshot, "a refresh within the rate-limit window must be dropped")

	ts.RefreshTamperSnapshot(1600, 500, []byte{3}, []bool{true}, true)
	assert.Equal(t, []byte{3}, ts.LastPayloadSnapshot, "a refresh past the rate-limit window must apply")
}
