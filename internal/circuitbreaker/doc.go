// Package circuitbreaker guards upstream calls with sony/gobreaker.
//
// One breaker exists per upstream family. A breaker opens after a run of
// consecutive transport failures and rejects calls with ErrOpen until the
// reset timeout passes, then lets a single probe through:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second, logger)
//	res, err := registry.GetBreaker("woolworths").Execute(func() (interface{}, error) {
//	    return client.Do(req)
//	})
//
// Upstream responses with error status codes are not failures; only errors
// returned by the wrapped function are counted.
package circuitbreaker
