// Package route holds the static routing table that maps public paths to
// RapidAPI upstream endpoints.
//
// The table is an ordered list evaluated by a single Match call; the first
// entry that matches wins. Entries either match a path exactly or match a
// prefix and capture the final path segment (the barcode):
//
//	table := route.Default()
//	m, ok := table.Match("/woolworths/barcode-search/9300601234567")
//	// m.Segment == "9300601234567"
//	// m.UpstreamPath == "/woolworths/barcode-search/9300601234567"
//
// A Table is read-only after construction and safe for concurrent use.
package route
