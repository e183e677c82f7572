package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*Breaker
	threshold int
	timeout   time.Duration
	logger    *slog.Logger
	onChange  StateChangeFunc
}

type Option func(*Registry)

// WithStateChange registers a callback invoked on every breaker transition.
func WithStateChange(fn StateChangeFunc) Option {
	return func(r *Registry) {
		r.onChange = fn
	}
}

func NewRegistry(threshold int, timeout time.Duration, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

func (r *Registry) GetBreaker(name string) *Breaker {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cb = newBreaker(name, r.threshold, r.timeout, r.logger, r.onChange)
	r.breakers[name] = cb
	return cb
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*Breaker)
}

func (r *Registry) Stats() map[string]gobreaker.State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]gobreaker.State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}

// AllOpen reports whether at least one breaker exists and every breaker is open.
func (r *Registry) AllOpen() bool {
	stats := r.Stats()
	if len(stats) == 0 {
		return false
	}

	for _, state := range stats {
		if state != gobreaker.StateOpen {
			return false
		}
	}
	return true
}
