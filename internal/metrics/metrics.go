// Package metrics - Prometheus-метрики сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry хранит коллекторы приложения.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vix",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Количество обработанных HTTP-запросов.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vix",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vix",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Операции книги по виду, валюте и результату.",
		},
		[]string{"kind", "currency", "result"},
	)

	ledgerVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vix",
			Subsystem: "ledger",
			Name:      "volume_total",
			Help:      "Сумма проведённых операций по валюте и назначению.",
		},
		[]string{"currency", "reason"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vix",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Переходы статусов заказов.",
		},
		[]string{"kind", "to", "result"},
	)

	reconcileMismatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vix",
			Subsystem: "reconcile",
			Name:      "mismatches",
			Help:      "Число расхождений на последней сверке.",
		},
	)

	notificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vix",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Неудачные доставки уведомлений по каналу.",
		},
		[]string{"sink"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		ledgerOperations,
		ledgerVolume,
		orderTransitions,
		reconcileMismatches,
		notificationFailures,
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func RecordLedger(kind, currency, reason string, amount int64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ledgerOperations.WithLabelValues(kind, currency, result).Inc()
	if err == nil && amount > 0 {
		ledgerVolume.WithLabelValues(currency, reason).Add(float64(amount))
	}
}

func RecordTransition(kind, to string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	orderTransitions.WithLabelValues(kind, to, result).Inc()
}

func SetReconcileMismatches(n int) {
	reconcileMismatches.Set(float64(n))
}

func RecordNotificationFailure(sink string) {
	notificationFailures.WithLabelValues(sink).Inc()
}
