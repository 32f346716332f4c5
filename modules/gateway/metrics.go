package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "fmstream"

const (
	outcomeEOF         = "eof"
	outcomeClientGone  = "client_gone"
	outcomeSpawnFailed = "spawn_failed"
	outcomeNoAudio     = "no_audio"
	outcomeTimeout     = "timeout"
	outcomeRejected    = "rejected"
)

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: module,
		Name:      "active_sessions",
		Help:      "Stream sessions with running capture and encoder processes.",
	})

	metricSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: module,
		Name:      "sessions_total",
		Help:      "Stream requests by how they ended.",
	}, []string{"outcome"})

	metricRelayedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: module,
		Name:      "relayed_bytes_total",
		Help:      "Encoder bytes written to stream clients.",
	})

	metricFirstFrame = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: module,
		Name:      "time_to_first_frame_seconds",
		Help:      "Time from request to the first MP3 frame sync in the encoder output.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
