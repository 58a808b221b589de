package processor

import "github.com/prometheus/client_golang/prometheus"

const namespace = "landsat_historic"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of processing runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Processing run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"mode"},
	)

	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total number of records handled by result",
		},
		[]string{"result"},
	)

	reassembledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_reassembled_total",
			Help:      "Total number of records reassembled across chunk boundaries",
		},
	)

	selectBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "select_bytes_total",
			Help:      "Bytes reported by S3 Select statistics",
		},
		[]string{"kind"},
	)

	checkpointTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_timestamp_seconds",
			Help:      "Unix time of the last committed checkpoint",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(recordsTotal)
	prometheus.MustRegister(reassembledTotal)
	prometheus.MustRegister(selectBytesTotal)
	prometheus.MustRegister(checkpointTimestamp)
}
