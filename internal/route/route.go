package route

import "strings"

// Family identifies which upstream API a route belongs to.
type Family string

const (
	Coles      Family = "coles"
	Woolworths Family = "woolworths"
)

const (
	ColesHost      = "coles-product-price-api.p.rapidapi.com"
	WoolworthsHost = "woolworths-products-api.p.rapidapi.com"
)

// Host returns the X-Rapidapi-Host value the family's upstream expects.
func (f Family) Host() string {
	switch f {
	case Coles:
		return ColesHost
	case Woolworths:
		return WoolworthsHost
	default:
		return ""
	}
}

type MatchKind int

const (
	// MatchExact matches when the request path equals Path.
	MatchExact MatchKind = iota
	// MatchSegment matches any path starting with Path and captures the text
	// after the last slash.
	MatchSegment
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSegment:
		return "segment"
	default:
		return "unknown"
	}
}

// Route maps an inbound path to an upstream path on one family.
type Route struct {
	Name         string
	Path         string
	Kind         MatchKind
	Family       Family
	UpstreamPath string
}

// Pattern is the public form of the route listed by the discovery document.
func (r Route) Pattern() string {
	if r.Kind == MatchSegment {
		return r.Path + "*"
	}
	return r.Path
}

func (r Route) matches(path string) bool {
	switch r.Kind {
	case MatchExact:
		return path == r.Path
	case MatchSegment:
		return strings.HasPrefix(path, r.Path)
	default:
		return false
	}
}

// Match is the result of resolving a request path against the table.
type Match struct {
	Route        Route
	Segment      string
	UpstreamPath string
}

type Table struct {
	routes []Route
}

// NewTable builds a table evaluated in the order given.
func NewTable(routes ...Route) *Table {
	r := make([]Route, len(routes))
	copy(r, routes)
	return &Table{routes: r}
}

// Default returns the five grocery routes.
func Default() *Table {
	return NewTable(
		Route{
			Name:         "coles-price-changes",
			Path:         "/coles/price-changes/",
			Kind:         MatchExact,
			Family:       Coles,
			UpstreamPath: "/coles/price-changes/",
		},
		Route{
			Name:         "coles-product-search",
			Path:         "/coles/product-search/",
			Kind:         MatchExact,
			Family:       Coles,
			UpstreamPath: "/coles/product-search/",
		},
		Route{
			Name:         "woolworths-price-changes",
			Path:         "/woolworths/price-changes/",
			Kind:         MatchExact,
			Family:       Woolworths,
			UpstreamPath: "/woolworths/price-changes/",
		},
		Route{
			Name:         "woolworths-barcode-search",
			Path:         "/woolworths/barcode-search/",
			Kind:         MatchSegment,
			Family:       Woolworths,
			UpstreamPath: "/woolworths/barcode-search/",
		},
		Route{
			Name:         "woolworths-product-search",
			Path:         "/woolworths/product-search/",
			Kind:         MatchExact,
			Family:       Woolworths,
			UpstreamPath: "/woolworths/product-search/",
		},
	)
}

// Match returns the first route matching path. The path is compared as sent
// on the wire, so callers should pass the escaped form.
func (t *Table) Match(path string) (Match, bool) {
	for _, r := range t.routes {
		if !r.matches(path) {
			continue
		}

		m := Match{Route: r, UpstreamPath: r.UpstreamPath}
		if r.Kind == MatchSegment {
			m.Segment = path[strings.LastIndex(path, "/")+1:]
			m.UpstreamPath = r.UpstreamPath + m.Segment
		}
		return m, true
	}

	return Match{}, false
}

// Routes returns a copy of the table entries in evaluation order.
func (t *Table) Routes() []Route {
	r := make([]Route, len(t.routes))
	copy(r, t.routes)
	return r
}

// Endpoints lists the public pattern of every route in order.
func (t *Table) Endpoints() []string {
	endpoints := make([]string, 0, len(t.routes))
	for _, r := range t.routes {
		endpoints = append(endpoints, r.Pattern())
	}
	return endpoints
}
