package main

import (
	"net/http"

	"github.com/angeloszaimis/grocery-proxy/internal/healthcheck"
	"github.com/angeloszaimis/grocery-proxy/internal/metrics"
)

func setupAdminRouter(metricsCollector *metrics.Collector, checker *healthcheck.Checker) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", metricsCollector.PrometheusHandler())
	mux.HandleFunc("GET /stats", metricsCollector.StatsHandler())
	mux.HandleFunc("GET /healthz", checker.LivenessHandler())
	mux.HandleFunc("GET /readyz", checker.ReadinessHandler())

	return mux
}
