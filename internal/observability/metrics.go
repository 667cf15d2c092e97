package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventhub_booking_seconds",
			Help:    "Duration of booking attempts",
			Buckets: prometheus.DefBuckets,
		},
	)

	SeatsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_seats_sold_total",
			Help: "Total seats sold",
		},
	)

	Compensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_compensations_total",
			Help: "Compensating actions run after a failed booking, by step and result",
		},
		[]string{"step", "result"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventhub_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventhub_outbox_lag_seconds",
			Help: "Age of the oldest outbox record published in the last batch",
		},
	)

	OutboxFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_outbox_failures_total",
			Help: "Outbox records that could not be written or published",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	CatalogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_catalog_cache_total",
			Help: "Catalog listing cache lookups by result",
		},
		[]string{"result"},
	)
)
