// Package healthcheck serves the admin liveness and readiness probes. The
// proxy is live while the process runs and ready unless every upstream
// circuit breaker is open. A background loop re-evaluates readiness on an
// interval so transitions are logged even when nobody polls the probe.
package healthcheck
