// Package httpserver wraps net/http.Server for both the public proxy listener
// and the admin listener. It validates the listen address up front and lets
// the caller choose between an immediate close and a bounded drain on stop.
package httpserver
