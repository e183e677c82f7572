package healthcheck

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// BreakerState reports whether every guarded upstream is currently rejecting calls.
type BreakerState interface {
	AllOpen() bool
}

type Status struct {
	Status string `json:"status"`
}

type Checker struct {
	breakers BreakerState
	ready    atomic.Bool
	logger   *slog.Logger
}

// NewChecker creates a checker. breakers may be nil when circuit breaking is
// disabled, in which case the proxy is always ready.
func NewChecker(breakers BreakerState, logger *slog.Logger) *Checker {
	c := &Checker{
		breakers: breakers,
		logger:   logger,
	}
	c.ready.Store(true)
	return c
}

// Ready re-evaluates readiness and logs a transition.
func (c *Checker) Ready() bool {
	ready := c.breakers == nil || !c.breakers.AllOpen()

	if changed := c.ready.Swap(ready) != ready; changed {
		if ready {
			c.logger.Info("Upstreams are back up")
		} else {
			c.logger.Warn("All upstream circuit breakers are open")
		}
	}

	return ready
}

// Run re-evaluates readiness every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Readiness check stopped")
			return
		case <-ticker.C:
			c.Ready()
		}
	}
}

// LivenessHandler always answers 200.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	}
}

// ReadinessHandler answers 503 while every upstream breaker is open.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Status{Status: status})
}
