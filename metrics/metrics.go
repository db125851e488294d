// Package metrics exposes Prometheus metrics for the attestation service
// on a dedicated listener, separate from the API server.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the /metrics endpoint and owns the service's
// domain counters.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry

	// Verifications counts attestation verification attempts by outcome.
	// The outcome label is "ok" or the rejection reason.
	Verifications *prometheus.CounterVec

	// ChallengesIssued counts issued attestation challenges.
	ChallengesIssued prometheus.Counter

	// CredentialsIssued counts successfully issued credentials.
	CredentialsIssued prometheus.Counter
}

// New creates a metrics server listening on addr. The namespace prefixes
// all domain metrics.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	m := &MetricsServer{
		registry: registry,
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Attestation verification attempts by outcome.",
		}, []string{"outcome"}),
		ChallengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Issued attestation challenges.",
		}),
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_issued_total",
			Help:      "Issued device credentials.",
		}),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	m.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return m, nil
}

// RecordVerification increments the verification counter for an outcome.
// Safe to call on a nil receiver so handlers don't need metrics wired in
// tests.
func (m *MetricsServer) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// RecordChallengeIssued increments the challenge counter.
func (m *MetricsServer) RecordChallengeIssued() {
	if m == nil {
		return
	}
	m.ChallengesIssued.Inc()
}

// RecordCredentialIssued increments the credential counter.
func (m *MetricsServer) RecordCredentialIssued() {
	if m == nil {
		return
	}
	m.CredentialsIssued.Inc()
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
