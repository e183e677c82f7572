package upstream_test

import (
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/grocery-proxy/internal/route"
	"github.com/angeloszaimis/grocery-proxy/internal/upstream"
)

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}

var _ = Describe("Upstream", func() {
	Describe("New", func() {
		It("should expose family, URL and host header", func() {
			base := mustParseURL("https://coles-product-price-api.p.rapidapi.com")
			u := upstream.New(route.Coles, base)
			Expect(u.Family()).To(Equal(route.Coles))
			Expect(u.URL()).To(Equal(base))
			Expect(u.Host()).To(Equal("coles-product-price-api.p.rapidapi.com"))
		})
	})

	Describe("ResolveURL", func() {
		var u *upstream.Upstream

		BeforeEach(func() {
			u = upstream.New(route.Woolworths, mustParseURL("https://woolworths-products-api.p.rapidapi.com"))
		})

		It("should join path without a query", func() {
			Expect(u.ResolveURL("/woolworths/price-changes/", "")).
				To(Equal("https://woolworths-products-api.p.rapidapi.com/woolworths/price-changes/"))
		})

		It("should append the raw query verbatim", func() {
			Expect(u.ResolveURL("/woolworths/product-search/", "query=milk&tag=a&tag=b")).
				To(Equal("https://woolworths-products-api.p.rapidapi.com/woolworths/product-search/?query=milk&tag=a&tag=b"))
		})

		It("should keep escaped path segments", func() {
			Expect(u.ResolveURL("/woolworths/barcode-search/ABC%2F1", "")).
				To(Equal("https://woolworths-products-api.p.rapidapi.com/woolworths/barcode-search/ABC%2F1"))
		})

		It("should keep a base path prefix", func() {
			prefixed := upstream.New(route.Coles, mustParseURL("http://localhost:9000/mock/"))
			Expect(prefixed.ResolveURL("/coles/price-changes/", "page=2")).
				To(Equal("http://localhost:9000/mock/coles/price-changes/?page=2"))
		})
	})

	Describe("NewSet", func() {
		It("should index upstreams by family", func() {
			set, err := upstream.NewSet(map[route.Family]string{
				route.Coles:      "https://coles.example.com",
				route.Woolworths: "https://woolworths.example.com",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(HaveLen(2))
			Expect(set[route.Coles].URL().Host).To(Equal("coles.example.com"))
		})

		It("should reject an unparsable URL", func() {
			_, err := upstream.NewSet(map[route.Family]string{route.Coles: "://bad"})
			Expect(err).To(HaveOccurred())
		})
	})
})
