// Package upstream calls the RapidAPI grocery APIs.
//
// Each Upstream describes one API family (Coles or Woolworths). The Client
// issues a single synchronous GET per Fetch, injecting the subscription key
// and the family host header, and returns the status, headers and body
// exactly as received. It never retries.
package upstream
