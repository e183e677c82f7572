// Package handler implements the public HTTP handler of the proxy.
//
// Requests are resolved in order: the root path serves a discovery document,
// then the route table is consulted, and anything else is a 404. Matched
// requests are forwarded to their upstream family and the response is relayed
// with status, headers and body unchanged. Transport failures become a 500
// whose body carries the underlying error.
package handler
