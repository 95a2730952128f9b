// Package metrics holds the Prometheus collectors of the photorestore server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// CreditDeltas counts balance changes by direction (grant, spend) and
	// result (applied, replayed, rejected).
	CreditDeltas *prometheus.CounterVec
	SignIns      *prometheus.CounterVec
	SignUps      prometheus.Counter
	// CheckoutsFulfilled counts first-time fulfilments by plan.
	CheckoutsFulfilled *prometheus.CounterVec
	TrialClaims        *prometheus.CounterVec
	RPCRequests        *prometheus.CounterVec
	RPCDuration        *prometheus.HistogramVec
	RateLimited        prometheus.Counter
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CreditDeltas: f.NewCounterVec(prometheus.CounterOpts{
			Name: "photorestore_credit_deltas_total",
			Help: "Credit deltas by direction and result",
		}, []string{"direction", "result"}),
		SignIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "photorestore_sign_ins_total",
			Help: "Sign-in attempts by result",
		}, []string{"result"}),
		SignUps: f.NewCounter(prometheus.CounterOpts{
			Name: "photorestore_sign_ups_total",
			Help: "Accounts created",
		}),
		CheckoutsFulfilled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "photorestore_checkouts_fulfilled_total",
			Help: "Checkouts fulfilled by plan",
		}, []string{"plan"}),
		TrialClaims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "photorestore_trial_claims_total",
			Help: "Trial claims by result",
		}, []string{"result"}),
		RPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "photorestore_rpc_requests_total",
			Help: "gRPC requests by method and status code",
		}, []string{"method", "code"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photorestore_rpc_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "photorestore_http_rate_limited_total",
			Help: "HTTP requests rejected by the rate limiter",
		}),
	}
}

// Direction labels a credit amount.
func Direction(amount int64) string {
	if amount < 0 {
		return "spend"
	}
	return "grant"
}
