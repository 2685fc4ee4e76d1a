package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carbonadvisor"

var (
	// EstimatesTotal counts served estimates by recommendation band.
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Number of emission estimates served, by band",
		},
		[]string{"band"},
	)

	InferenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_failures_total",
			Help:      "Number of model invocations that failed or returned an unusable value",
		},
	)

	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of model invocations",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	// UnknownCrops counts crop types that fell back to the reference level.
	UnknownCrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_crop_total",
			Help:      "Number of observations whose crop type is not a known level",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Number of estimates answered from the result cache",
		},
	)

	ArtifactChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_changes_total",
			Help:      "Number of on-disk changes seen for loaded schema or model files",
		},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected realtime feed clients",
		},
	)
)
