// Package metrics exposes the prometheus counters and summaries the
// orchestrator and outbox dispatcher increment, following the teacher's
// promauto-based metrics.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Total number of orders created, labeled by final status.",
	}, []string{"status"})

	PaymentsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of payment charges that were declined or errored.",
	})

	SeatReservationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seat_reservations_failed",
		Help: "Total number of seat reservation attempts that failed.",
	})

	OutboxDispatchDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "outbox_dispatch_duration_seconds",
		Help: "Time spent dispatching a single outbox event to the notification service.",
	})

	OutboxDispatchFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dispatch_failed_total",
		Help: "Total number of outbox events that failed to dispatch and will be retried.",
	})

	SagaCompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensations_total",
		Help: "Total number of compensation steps run, labeled by step name.",
	}, []string{"step"})
)
