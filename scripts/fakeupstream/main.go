// Fakeupstream is a stand-in for both RapidAPI grocery hosts, used to run the
// proxy locally without a subscription.
//
// Usage:
//
//	go run ./scripts/fakeupstream -port 8081 -rate-limit-every 10
//
// Point the proxy at it with:
//
//	UPSTREAM_COLES_URL=http://localhost:8081 UPSTREAM_WOOLWORTHS_URL=http://localhost:8081 go run ./cmd
//
// Every response carries a fresh request id. Calls without an X-Rapidapi-Key
// are refused with 401, and with -rate-limit-every N every Nth call is
// answered with 429 the way RapidAPI does.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

var knownHosts = map[string]bool{
	"coles-product-price-api.p.rapidapi.com": true,
	"woolworths-products-api.p.rapidapi.com": true,
}

type result struct {
	RequestID string              `json:"request_id"`
	Host      string              `json:"host"`
	Path      string              `json:"path"`
	Barcode   string              `json:"barcode,omitempty"`
	Query     map[string][]string `json:"query"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	rateLimitEvery := flag.Int64("rate-limit-every", 0, "answer every Nth request with 429 (0 disables)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	var calls atomic.Int64

	handle := func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		host := r.Header.Get("X-Rapidapi-Host")
		log.Info("request",
			slog.String("path", r.URL.EscapedPath()),
			slog.String("query", r.URL.RawQuery),
			slog.String("host", host))

		if r.Header.Get("X-Rapidapi-Key") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key. Go to https://docs.rapidapi.com/docs/keys for more info."})
			return
		}
		if !knownHosts[host] {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "You are not subscribed to this API."})
			return
		}
		if *rateLimitEvery > 0 && n%*rateLimitEvery == 0 {
			w.Header().Set("X-Ratelimit-Requests-Remaining", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "You have exceeded the rate limit per second for your plan, BASIC, by the API provider"})
			return
		}

		res := result{
			RequestID: uuid.NewString(),
			Host:      host,
			Path:      r.URL.EscapedPath(),
			Query:     r.URL.Query(),
		}
		if rest, ok := strings.CutPrefix(res.Path, "/woolworths/barcode-search/"); ok {
			res.Barcode = rest
		}
		writeJSON(w, http.StatusOK, res)
	}

	mux := http.NewServeMux()
	for _, path := range []string{
		"GET /coles/price-changes/",
		"GET /coles/product-search/",
		"GET /woolworths/price-changes/",
		"GET /woolworths/product-search/",
		"GET /woolworths/barcode-search/",
	} {
		mux.HandleFunc(path, handle)
	}

	addr := fmt.Sprintf(":%d", *port)
	log.Info("starting fake upstream", slog.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
