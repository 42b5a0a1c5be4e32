package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the booking flow.
type Metrics struct {
	OrdersCreated     prometheus.Counter
	PaymentsVerified  prometheus.Counter
	SlotConflicts     prometheus.Counter
	SignatureRejected prometheus.Counter
	BookingDuration   prometheus.Histogram
	ErrorsCount       *prometheus.CounterVec
}

// New registers and returns the booking metrics. Call once per process.
func New(namespace string) *Metrics {
	return &Metrics{
		OrdersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "The total number of payment orders created",
		}),
		PaymentsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_verified_total",
			Help:      "The total number of payment callbacks verified and persisted",
		}),
		SlotConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "The total number of bookings rejected because a slot was taken",
		}),
		SignatureRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_rejected_total",
			Help:      "The total number of payment callbacks with a bad signature",
		}),
		BookingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_duration_seconds",
			Help:      "Time taken to verify a payment and persist the appointment",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
