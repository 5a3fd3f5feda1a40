package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "offercollab", Name: "commits_total", Help: "Number of successfully committed offer updates."},
	)
	ConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "offercollab", Name: "version_conflicts_total", Help: "Number of updates rejected on a version conflict."},
	)
	RejectedFieldsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "offercollab", Name: "rejected_fields_total", Help: "Number of individual fields dropped by the field policy."},
	)
	SessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "offercollab", Name: "sessions_started_total", Help: "Number of editing sessions started."},
	)
	SessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "offercollab", Name: "sessions_swept_total", Help: "Number of timed-out sessions evicted by the background sweep."},
	)
	UpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "offercollab", Name: "update_duration_seconds", Help: "Latency of submitUpdate calls.", Buckets: prometheus.DefBuckets},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(CommitsTotal)
	reg.MustRegister(ConflictsTotal)
	reg.MustRegister(RejectedFieldsTotal)
	reg.MustRegister(SessionsStartedTotal)
	reg.MustRegister(SessionsSweptTotal)
	reg.MustRegister(UpdateDuration)
}
