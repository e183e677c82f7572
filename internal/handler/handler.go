package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/grocery-proxy/internal/circuitbreaker"
	"github.com/angeloszaimis/grocery-proxy/internal/metrics"
	"github.com/angeloszaimis/grocery-proxy/internal/route"
	"github.com/angeloszaimis/grocery-proxy/internal/upstream"
)

const (
	RequestIDHeader  = "X-Request-ID"
	DiscoveryMessage = "Welcome to MCP Server"

	routeDiscovery        = "discovery"
	routeUnmatched        = "unmatched"
	routeMethodNotAllowed = "method_not_allowed"
)

var (
	ErrRouteNotFound    = errors.New("no route matches path")
	ErrNoUpstream       = errors.New("no upstream configured for route")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Discovery is the document served at the root path.
type Discovery struct {
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
}

// ProxyHandler resolves inbound GETs against the route table and relays the
// matching upstream response. It holds no mutable state.
type ProxyHandler struct {
	logger           *slog.Logger
	routes           *route.Table
	upstreams        upstream.Set
	client           *upstream.Client
	metricsCollector *metrics.Collector
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.logger.With(slog.String("request_id", requestID(r)))
	path := r.URL.EscapedPath()

	log.Info("Received request",
		slog.String("from", extractClientIP(r)),
		slog.String("method", r.Method),
		slog.String("path", path),
		slog.String("query", r.URL.RawQuery),
		slog.String("user_agent", r.UserAgent()))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.fail(w, log, routeMethodNotAllowed, start, http.StatusMethodNotAllowed,
			fmt.Errorf("%w: %s", ErrMethodNotAllowed, r.Method))
		return
	}

	if path == "/" {
		h.serveDiscovery(w, log, start)
		return
	}

	match, ok := h.routes.Match(path)
	if !ok {
		h.fail(w, log, routeUnmatched, start, http.StatusNotFound,
			fmt.Errorf("%w: %s", ErrRouteNotFound, path))
		return
	}

	name := match.Route.Name
	h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: name})

	up, ok := h.upstreams[match.Route.Family]
	if !ok {
		h.fail(w, log, name, start, http.StatusInternalServerError,
			fmt.Errorf("%w: %s", ErrNoUpstream, match.Route.Family))
		return
	}

	log.Debug("Forwarding to upstream",
		slog.String("route", name),
		slog.String("upstream", string(up.Family())),
		slog.String("upstream_path", match.UpstreamPath))

	// The outbound call outlives a dropped inbound connection; the client timeout bounds it.
	ctx := context.WithoutCancel(r.Context())

	resp, err := h.client.Fetch(ctx, up, match.UpstreamPath, r.URL.RawQuery)
	if err != nil {
		h.metricsCollector.Emit(metrics.MetricEvent{
			Type:     metrics.EventUpstreamFailed,
			Route:    name,
			Upstream: string(up.Family()),
			Reason:   failureReason(err),
		})
		h.fail(w, log, name, start, http.StatusInternalServerError, err)
		return
	}

	header := w.Header()
	for key, values := range resp.Header {
		header[key] = append([]string(nil), values...)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		log.Warn("Failed to write response body", slog.Any("err", err))
	}

	duration := time.Since(start)
	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Route:      name,
		Upstream:   string(up.Family()),
		Duration:   duration,
		StatusCode: resp.StatusCode,
	})

	log.Info("Request completed",
		slog.String("route", name),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
		slog.Duration("duration", duration))
}

func (h *ProxyHandler) serveDiscovery(w http.ResponseWriter, log *slog.Logger, start time.Time) {
	h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: routeDiscovery})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(Discovery{
		Message:   DiscoveryMessage,
		Endpoints: h.routes.Endpoints(),
	}); err != nil {
		log.Warn("Failed to write discovery document", slog.Any("err", err))
	}

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Route:      routeDiscovery,
		Duration:   time.Since(start),
		StatusCode: http.StatusOK,
	})
}

// fail writes an error response and records it.
func (h *ProxyHandler) fail(w http.ResponseWriter, log *slog.Logger, routeName string, start time.Time, status int, err error) {
	var msg string
	switch {
	case errors.Is(err, upstream.ErrUnavailable):
		msg = "Error fetching data from upstream API: " + err.Error()
		log.Error("Upstream request failed", slog.String("route", routeName), slog.Any("err", err))
	case errors.Is(err, ErrNoUpstream):
		msg = "Internal Server Error: " + err.Error()
		log.Error("Route has no upstream", slog.String("route", routeName), slog.Any("err", err))
	case errors.Is(err, ErrRouteNotFound):
		msg = "Not Found: " + err.Error()
		log.Warn("No route matched", slog.Any("err", err))
	default:
		msg = http.StatusText(status) + ": " + err.Error()
		log.Warn("Request rejected", slog.Int("status", status), slog.Any("err", err))
	}

	http.Error(w, msg, status)

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Route:      routeName,
		Duration:   time.Since(start),
		StatusCode: status,
	})
}

func failureReason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "transport"
	}
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

// NewProxyHandler wires the route table to the upstreams. collector may be nil.
func NewProxyHandler(logger *slog.Logger, routes *route.Table, upstreams upstream.Set, client *upstream.Client, collector *metrics.Collector) *ProxyHandler {
	return &ProxyHandler{
		logger:           logger,
		routes:           routes,
		upstreams:        upstreams,
		client:           client,
		metricsCollector: collector,
	}
}
