package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contract_deployer"

var (
	// DeploymentsTotal counts deployment attempts by final status (succeeded, failed) or rejection kind.
	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployment attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// SwitchRequestsTotal counts wallet chain switch requests by outcome.
	SwitchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "switch_requests_total",
			Help:      "Wallet chain switch requests by outcome.",
		},
		[]string{"outcome"},
	)

	// CompileRequestsTotal counts compile service calls by outcome (ok, cached, error).
	CompileRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compile_requests_total",
			Help:      "Compile requests by outcome.",
		},
		[]string{"outcome"},
	)

	// RecommendationsTotal counts served recommendations.
	RecommendationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendations computed.",
		},
	)

	// ActiveSessions tracks sessions currently held by the session store.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		},
	)

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default Prometheus registry.
// Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			DeploymentsTotal,
			SwitchRequestsTotal,
			CompileRequestsTotal,
			RecommendationsTotal,
			ActiveSessions,
		)
	})
}
