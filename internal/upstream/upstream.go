package upstream

import (
	"net/url"
	"strings"

	"github.com/angeloszaimis/grocery-proxy/internal/route"
)

// Upstream is one RapidAPI family: where to send requests and which host
// header to present.
type Upstream struct {
	family  route.Family
	baseURL *url.URL
}

// New creates an Upstream. Any path on baseURL is kept as a prefix.
func New(family route.Family, baseURL *url.URL) *Upstream {
	return &Upstream{
		family:  family,
		baseURL: baseURL,
	}
}

func (u *Upstream) Family() route.Family {
	return u.family
}

func (u *Upstream) URL() *url.URL {
	return u.baseURL
}

// Host returns the X-Rapidapi-Host value for this upstream.
func (u *Upstream) Host() string {
	return u.family.Host()
}

// ResolveURL joins the base URL with an escaped upstream path and a raw query
// string. Both are used verbatim.
func (u *Upstream) ResolveURL(upstreamPath, rawQuery string) string {
	var b strings.Builder
	b.WriteString(u.baseURL.Scheme)
	b.WriteString("://")
	b.WriteString(u.baseURL.Host)
	b.WriteString(strings.TrimSuffix(u.baseURL.EscapedPath(), "/"))
	b.WriteString(upstreamPath)
	if rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(rawQuery)
	}
	return b.String()
}

// Set indexes upstreams by family.
type Set map[route.Family]*Upstream

// NewSet parses one base URL per family.
func NewSet(baseURLs map[route.Family]string) (Set, error) {
	set := make(Set, len(baseURLs))
	for family, raw := range baseURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		set[family] = New(family, u)
	}
	return set, nil
}
