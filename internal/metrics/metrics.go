// Package metrics holds the broker's Prometheus collectors. They live in a
// standalone package so credentials, social and approval can record without
// importing the HTTP layer.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CredentialTokenFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credentials_token_fetch_total",
		Help: "Outbound token requests of the credential token client by result",
	}, []string{"result"}) // ok|error

	SocialExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_exchange_total",
		Help: "Foreign authorization code exchanges by provider and result",
	}, []string{"provider", "result"})

	ApprovalsPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approvals_purged_total",
		Help: "Expired approvals removed by the purge job",
	})

	ApprovalPurgeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "approvals_purge_duration_seconds",
		Help:    "Duration of approval purge runs",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route pattern and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registers the collectors on reg (default registerer when nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		CredentialTokenFetches,
		SocialExchanges,
		ApprovalsPurged,
		ApprovalPurgeDuration,
		HTTPRequests,
		HTTPRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
