package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"netsim/internal/metrics"
)

func TestModulePacketsTotal_IncrementsByLabel(t *testing.T) {
	metrics.ModulePacketsTotal.Reset()
	metrics.ModulePacketsTotal.WithLabelValues("drop", "dropped").Inc()
	metrics.ModulePacketsTotal.WithLabelValues("drop", "dropped").Inc()
	metrics.ModulePacketsTotal.WithLabelValues("lag", "passed").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ModulePacketsTotal.WithLabelValues("drop", "dropped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ModulePacketsTotal.WithLabelValues("lag", "passed")))
}

func TestProcessingRunning_ReflectsSetValue(t *testing.T) {
	metrics.ProcessingRunning.Set(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProcessingRunning))

	metrics.ProcessingRunning.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ProcessingRunning))
}

func TestNewServer_AcceptsEmptyPath(t *testing.T) {
	s := metrics.NewServer("127.0.0.1:0", "")
	assert.NotNil(t, s)
}
