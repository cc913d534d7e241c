package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/internal/config"
	"netsim/pkg/settings"
)

func newStore(t *testing.T) *config.Store {
	t.Helper()
	s, err := config.NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newStore(t)

	orig := settings.NewBuilder().
		Drop(25).
		Lag(150).WithLagChance(80).
		Tamper(10).WithTamperAmount(30).
		Build()

	require.NoError(t, s.Save("profile1", orig))

	loaded, err := s.Load("profile1")
	require.NoError(t, err)

	assert.Equal(t, orig.Drop.Common.Enabled, loaded.Drop.Common.Enabled)
	assert.InDelta(t, orig.Drop.Common.ProbabilityPercent(), loaded.Drop.Common.ProbabilityPercent(), 0.001)
	assert.Equal(t, orig.Lag.LagMs, loaded.Lag.LagMs)
	assert.InDelta(t, orig.Lag.Common.ProbabilityPercent(), loaded.Lag.Common.ProbabilityPercent(), 0.001)
	assert.InDelta(t, orig.Tamper.Amount, loaded.Tamper.Amount, 0.001)
}

func TestLoad_MissingProfile(t *testing.T) {
	s := newStore(t)
	_, err := s.Load("does-not-exist")
	assert.Error(t, err)
}

func TestList_ReturnsSavedProfileNames(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("a", settings.Default()))
	require.NoError(t, s.Save("b", settings.Default()))

	names, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestDelete_RemovesProfile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("temp", settings.Default()))
	require.NoError(t, s.Delete("temp"))

	names, err := s.List()
	require.NoError(t, err)
	assert.NotContains(t, names, "temp")
}

func TestDelete_MissingProfileIsNoop(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Delete("never-existed"))
}

func TestFilterHistory_EmptyInitially(t *testing.T) {
	s := newStore(t)
	hist, err := s.FilterHistory()
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestRecordFilter_PrependsMostRecentFirst(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.RecordFilter("tcp"))
	require.NoError(t, s.RecordFilter("udp"))

	hist, err := s.FilterHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"udp", "tcp"}, hist)
}

func TestRecordFilter_DeduplicatesAndMovesToFront(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.RecordFilter("tcp"))
	require.NoError(t, s.RecordFilter("udp"))
	require.NoError(t, s.RecordFilter("tcp"))

	hist, err := s.FilterHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"tcp", "udp"}, hist)
}

func TestRecordFilter_CapsAt20Entries(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, s.RecordFilter(string(rune('a'+i))))
	}
	hist, err := s.FilterHistory()
	require.NoError(t, err)
	assert.Len(t, hist, 20)
	assert.Equal(t, string(rune('a'+24)), hist[0], "most recently recorded filter stays at the front")
}

func TestClearFilterHistory(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.RecordFilter("tcp"))
	require.NoError(t, s.ClearFilterHistory())

	hist, err := s.FilterHistory()
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestSanitizeName_PreventsDirectoryEscape(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("../evil", settings.Default()))

	names, err := s.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
	assert.NotContains(t, names[0], "..")
}
