// Package metrics implements Prometheus metrics mirroring the pipeline's
// in-process stats substrate (pkg/stats). The stats substrate stays the
// source of truth read by get_status; these instruments are a read-only
// mirror scraped over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReceivePacketsTotal counts packets read off the capture handle.
	ReceivePacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsim_receive_packets_total",
			Help: "Total number of packets received from the diversion driver",
		},
	)

	// SendPacketsTotal counts packets re-injected by the pipeline.
	SendPacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsim_send_packets_total",
			Help: "Total number of packets re-injected after the impairment pipeline",
		},
	)

	// ModulePacketsTotal counts packets seen by a given module, by outcome.
	ModulePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsim_module_packets_total",
			Help: "Total packets observed by an impairment module",
		},
		[]string{"module", "outcome"}, // outcome as mirrored by pkg/pipeline: dropped | reordered | duplicated
	)

	// ModuleQueueLength tracks packets currently buffered in module-private state.
	ModuleQueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netsim_module_queue_length",
			Help: "Current number of packets buffered inside a module's private state",
		},
		[]string{"module"},
	)

	// BandwidthRateKBps mirrors the bandwidth module's EWMA of KB/s sent.
	BandwidthRateKBps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsim_bandwidth_rate_kbps",
			Help: "EWMA-smoothed send rate observed by the bandwidth module, in KB/s",
		},
	)

	// PipelineCycleSeconds measures one drain-process-send cycle's wall time.
	PipelineCycleSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netsim_pipeline_cycle_seconds",
			Help:    "Duration of one pipeline processing cycle",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		},
	)

	// ProcessingRunning reports whether the pipeline is currently active.
	ProcessingRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsim_processing_running",
			Help: "1 when start_processing is active, 0 otherwise",
		},
	)
)
