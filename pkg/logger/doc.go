// Package logger provides structured logging with configurable log levels.
// It wraps log/slog, choosing a JSON handler in production and a text handler
// elsewhere, and tags every record with the service and environment.
package logger
