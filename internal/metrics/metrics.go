package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Checkouts       *prometheus.CounterVec
	Webhooks        *prometheus.CounterVec
	StockRejections prometheus.Counter
}

func New(service string) *Metrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by method and result.",
	}, []string{"method", "result"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "webhook_notifications_total",
		Help:      "Webhook notifications by mapped outcome.",
	}, []string{"outcome"})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "stock_rejections_total",
		Help:      "Checkouts rejected for insufficient stock.",
	})

	prometheus.MustRegister(checkouts, webhooks, stockRejections)
	return &Metrics{Checkouts: checkouts, Webhooks: webhooks, StockRejections: stockRejections}
}

// Nil-safe increments: handler boleh jalan tanpa metrics (tests).

func (m *Metrics) IncCheckout(method, result string) {
	if m != nil {
		m.Checkouts.WithLabelValues(method, result).Inc()
	}
}

func (m *Metrics) IncWebhook(outcome string) {
	if m != nil {
		m.Webhooks.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncStockRejection() {
	if m != nil {
		m.StockRejections.Inc()
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
