package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор Prometheus метрик сервиса
// Все методы безопасны для вызова на nil (метрики выключены в конфиге)
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// База данных
	DBQueriesTotal      *prometheus.CounterVec
	DBQueryDuration     *prometheus.HistogramVec
	DBOpenConnections   prometheus.Gauge
	DBInUseConnections  prometheus.Gauge
	DBIdleConnections   prometheus.Gauge
	DBWaitCount         prometheus.Gauge
	DBWaitDurationTotal prometheus.Gauge

	// Места в расписании
	SeatsReserved        prometheus.Counter
	SeatsReleased        prometheus.Counter
	ReservationsRejected *prometheus.CounterVec

	// Возвраты
	RefundsProcessed  *prometheus.CounterVec
	RefundsPublished  *prometheus.CounterVec
	RefundGatewayTime prometheus.Histogram
}

// New регистрирует метрики в глобальном реестре Prometheus
func New(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),

		DBQueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_queries_total",
			Help:        "Total number of database queries",
			ConstLabels: labels,
		}, []string{"operation", "status"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query latency",
			ConstLabels: labels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		DBOpenConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_open_connections",
			Help:        "Number of established connections",
			ConstLabels: labels,
		}),
		DBInUseConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_in_use_connections",
			Help:        "Number of connections currently in use",
			ConstLabels: labels,
		}),
		DBIdleConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_idle_connections",
			Help:        "Number of idle connections",
			ConstLabels: labels,
		}),
		DBWaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_wait_count",
			Help:        "Total number of connections waited for",
			ConstLabels: labels,
		}),
		DBWaitDurationTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_wait_duration_seconds_total",
			Help:        "Total time blocked waiting for a new connection",
			ConstLabels: labels,
		}),

		SeatsReserved: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "schedule_seats_reserved_total",
			Help:        "Number of schedule seats reserved",
			ConstLabels: labels,
		}),
		SeatsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "schedule_seats_released_total",
			Help:        "Number of schedule seats released",
			ConstLabels: labels,
		}),
		ReservationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "schedule_reservations_rejected_total",
			Help:        "Number of rejected seat reservations by reason",
			ConstLabels: labels,
		}, []string{"reason"}),

		RefundsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "refunds_processed_total",
			Help:        "Refund tasks handled by the consumer by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		RefundsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "refunds_published_total",
			Help:        "Refund tasks published to the broker by source",
			ConstLabels: labels,
		}, []string{"source"}),
		RefundGatewayTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "refund_gateway_duration_seconds",
			Help:        "Payment gateway refund call latency",
			ConstLabels: labels,
			Buckets:     []float64{.1, .5, 1, 2, 3, 5, 10, 30},
		}),
	}
}

// SeatReserved учитывает успешное резервирование места
func (m *Metrics) SeatReserved() {
	if m == nil {
		return
	}
	m.SeatsReserved.Inc()
}

// SeatReleased учитывает освобождение места
func (m *Metrics) SeatReleased() {
	if m == nil {
		return
	}
	m.SeatsReleased.Inc()
}

// ReservationRejected учитывает отказ в резервировании с причиной
func (m *Metrics) ReservationRejected(reason string) {
	if m == nil {
		return
	}
	m.ReservationsRejected.WithLabelValues(reason).Inc()
}

// RefundProcessed учитывает обработку задачи возврата (ok, skipped, retry, dead_letter)
func (m *Metrics) RefundProcessed(outcome string) {
	if m == nil {
		return
	}
	m.RefundsProcessed.WithLabelValues(outcome).Inc()
}

// RefundPublished учитывает публикацию задачи возврата (cancel, retry, reconcile)
func (m *Metrics) RefundPublished(source string) {
	if m == nil {
		return
	}
	m.RefundsPublished.WithLabelValues(source).Inc()
}

// ObserveRefundGateway учитывает длительность вызова платежного шлюза
func (m *Metrics) ObserveRefundGateway(seconds float64) {
	if m == nil {
		return
	}
	m.RefundGatewayTime.Observe(seconds)
}
