// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the proxy's listen addresses, the
// RapidAPI subscription key, upstream base URLs and timeouts, and the optional
// circuit breaker, admin and tracing settings.
package config
