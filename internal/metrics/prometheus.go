package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grocery_proxy"

type promMetrics struct {
	requestsTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

func newPromMetrics(registerer prometheus.Registerer) *promMetrics {
	factory := promauto.With(registerer)

	return &promMetrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of inbound requests by route and response code",
			},
			[]string{"route", "code"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Duration of upstream calls that produced a response",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route"},
		),
		upstreamFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "failures_total",
				Help:      "Total number of upstream transport failures",
			},
			[]string{"upstream", "reason"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"upstream"},
		),
	}
}

func (p *promMetrics) process(event MetricEvent) {
	switch event.Type {
	case EventResponseCompleted:
		p.requestsTotal.WithLabelValues(event.Route, strconv.Itoa(event.StatusCode)).Inc()
		if event.Upstream != "" {
			p.upstreamDuration.WithLabelValues(event.Route).Observe(event.Duration.Seconds())
		}

	case EventUpstreamFailed:
		p.upstreamFailures.WithLabelValues(event.Upstream, event.Reason).Inc()

	case EventBreakerChanged:
		p.breakerState.WithLabelValues(event.Upstream).Set(float64(event.BreakerState))
	}
}
