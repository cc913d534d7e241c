package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netsim/pkg/clock"
)

func TestReal_NowAdvances(t *testing.T) {
	var c clock.Clock = clock.Real{}
	t1 := c.Now()
	time.Sleep(time.Millisecond)
	t2 := c.Now()
	assert.True(t, t2.After(t1))
}

func TestFake_NowIsStable(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)
	assert.Equal(t, start, f.Now())
	assert.Equal(t, start, f.Now())
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)
	f.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), f.Now())
}

func TestFake_Set(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)
	target := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.Set(target)
	assert.Equal(t, target, f.Now())
}
