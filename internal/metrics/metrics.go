package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts committed workflow transitions by outcome and
	// resulting state.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assignment_service",
		Name:      "transitions_total",
		Help:      "Committed request state transitions.",
	}, []string{"outcome", "state"})

	// TransitionFailures counts transitions rejected before or during
	// persistence, by reason.
	TransitionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assignment_service",
		Name:      "transition_failures_total",
		Help:      "Rejected request state transitions.",
	}, []string{"reason"})

	// CapacityRejections counts assignments refused by the atomic
	// capacity check.
	CapacityRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "assignment_service",
		Name:      "capacity_rejections_total",
		Help:      "Assignments refused because the instructor was at capacity.",
	})

	// HeadroomRejections counts capacity-limit edits below the mandatory
	// headroom.
	HeadroomRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "assignment_service",
		Name:      "headroom_rejections_total",
		Help:      "Limit edits refused by the headroom rule.",
	})
)
