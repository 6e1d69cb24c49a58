package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Redirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "prettylinks", Name: "redirects_total", Help: "Resolved redirect requests by outcome and reason."},
		[]string{"outcome", "reason"},
	)
	LookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "prettylinks", Name: "lookup_duration_seconds", Help: "Record store lookup latency seen by the resolver.", Buckets: prometheus.DefBuckets},
		[]string{"result"},
	)
	RateLimitAllowed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "prettylinks", Name: "rate_limit_allowed_total", Help: "Requests admitted by the redirect rate limiter."},
	)
	RateLimitRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "prettylinks", Name: "rate_limit_rejected_total", Help: "Requests rejected by the redirect rate limiter."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Redirects)
	reg.MustRegister(LookupDuration)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}

var registerDefault sync.Once

// Register adds the collectors to the default registry served by promhttp.
// Safe to call from every entrypoint.
func Register() {
	registerDefault.Do(func() { RegisterCollectors(prometheus.DefaultRegisterer) })
}
