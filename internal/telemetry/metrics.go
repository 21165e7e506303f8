package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	NegotiationsCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_negotiations_created_total", Help: "Applications and invitations created"})
	ContractsCreated    = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_contracts_created_total", Help: "Contracts created from mutual agreement"})
	ContractTransitions = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_contract_transitions_total", Help: "Successful contract status transitions"})
	ReviewsSubmitted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_reviews_submitted_total", Help: "Reviews accepted"})
	StateConflicts      = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_state_conflicts_total", Help: "Transitions rejected by a state guard"})
	NotifyFailures      = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_notify_failures_total", Help: "Notification events dropped on enqueue or dispatch"})
	NotifyDispatched    = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_notify_dispatched_total", Help: "Notification events delivered to pub/sub"})
	RateLimitRejects    = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigwork_rate_limit_rejects_total", Help: "Mutating requests rejected by the rate limiter"})
	NotifyQueueDepth    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "gigwork_notify_queue_depth", Help: "Pending outbound notification events"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			NegotiationsCreated,
			ContractsCreated,
			ContractTransitions,
			ReviewsSubmitted,
			StateConflicts,
			NotifyFailures,
			NotifyDispatched,
			RateLimitRejects,
			NotifyQueueDepth,
		)
	})
	return promhttp.Handler()
}
