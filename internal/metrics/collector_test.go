package metrics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/grocery-proxy/internal/metrics"
	"github.com/angeloszaimis/grocery-proxy/pkg/logger"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, logger.Discard())
	})

	AfterEach(func() {
		cancel()
	})

	scrape := func() string {
		rec := httptest.NewRecorder()
		collector.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}

	Describe("event processing", func() {
		It("should process EventRequestReceived", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "coles-price-changes"})

			Eventually(func() int64 {
				return collector.Snapshot().Routes["coles-price-changes"].Requests
			}).Should(Equal(int64(1)))
		})

		It("should process EventResponseCompleted into the snapshot and Prometheus", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Route:      "woolworths-barcode-search",
				Upstream:   "woolworths",
				Duration:   100 * time.Millisecond,
				StatusCode: 429,
			})

			Eventually(func() int64 {
				return collector.Snapshot().Routes["woolworths-barcode-search"].StatusCodes[429]
			}).Should(Equal(int64(1)))

			body := scrape()
			Expect(body).To(ContainSubstring(`grocery_proxy_requests_total{code="429",route="woolworths-barcode-search"} 1`))
			Expect(body).To(ContainSubstring(`grocery_proxy_upstream_duration_seconds_count{route="woolworths-barcode-search"} 1`))
		})

		It("should process EventUpstreamFailed", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{
				Type:     metrics.EventUpstreamFailed,
				Route:    "coles-product-search",
				Upstream: "coles",
				Reason:   "transport",
			})

			Eventually(func() int64 {
				return collector.Snapshot().Routes["coles-product-search"].UpstreamFailures
			}).Should(Equal(int64(1)))
			Expect(scrape()).To(ContainSubstring(`grocery_proxy_upstream_failures_total{reason="transport",upstream="coles"} 1`))
		})

		It("should process EventBreakerChanged", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{
				Type:         metrics.EventBreakerChanged,
				Upstream:     "coles",
				BreakerState: 2,
				BreakerLabel: "open",
			})

			Eventually(func() map[string]string {
				return collector.Snapshot().Breakers
			}).Should(HaveKeyWithValue("coles", "open"))
			Expect(scrape()).To(ContainSubstring(`grocery_proxy_circuit_breaker_state{upstream="coles"} 2`))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "r"}
			}

			collector.Start(ctx)
			cancel()

			Eventually(func() int64 {
				return collector.Snapshot().Routes["r"].Requests
			}).Should(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should not block when the buffer is full", func() {
			small := metrics.NewCollector(1, logger.Discard())
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10; i++ {
					small.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "r"})
				}
			}()
			Eventually(done).Should(BeClosed())
		})

		It("should ignore events on a nil collector", func() {
			var nilCollector *metrics.Collector
			Expect(func() {
				nilCollector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})
			}).NotTo(Panic())
		})
	})

	Describe("StatsHandler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "coles-price-changes"})
			Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.StatsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.TotalRequests).To(Equal(int64(1)))
		})
	})
})
