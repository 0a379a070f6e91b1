package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suar-net/arango-go/protocol"
)

var (
	// relayedRequests counts relayed calls by connection alias, method and outcome.
	relayedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arango_gateway_relayed_requests_total",
			Help: "Total number of requests relayed to ArangoDB.",
		},
		[]string{"alias", "method", "outcome"},
	)

	relayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arango_gateway_relay_duration_seconds",
			Help:    "Duration of requests relayed to ArangoDB in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"alias", "method"},
	)
)

func init() {
	prometheus.MustRegister(relayedRequests, relayDuration)
}

func observeRelay(alias string, method protocol.HTTPMethod, outcome protocol.Outcome, d time.Duration) {
	relayedRequests.WithLabelValues(alias, string(method), outcome.String()).Inc()
	relayDuration.WithLabelValues(alias, string(method)).Observe(d.Seconds())
}
