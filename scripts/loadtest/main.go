// Loadtest drives concurrent GETs across every proxy route and reports
// throughput, status codes and latency percentiles per route.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8000 -concurrency 20 -requests 2000
//	go run ./scripts/loadtest -url http://localhost:8000 -out summary.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var targets = []struct {
	route string
	path  func(i int) string
}{
	{"coles-price-changes", func(int) string { return "/coles/price-changes/?page=1" }},
	{"coles-product-search", func(int) string { return "/coles/product-search/?query=milk" }},
	{"woolworths-price-changes", func(int) string { return "/woolworths/price-changes/" }},
	{"woolworths-barcode-search", func(i int) string { return fmt.Sprintf("/woolworths/barcode-search/93%011d", i) }},
	{"woolworths-product-search", func(int) string { return "/woolworths/product-search/?query=bread&page=2" }},
}

type routeStats struct {
	mu          sync.Mutex
	statusCodes map[int]int
	failures    int
	latencies   []time.Duration
}

type routeSummary struct {
	Total       int         `json:"total"`
	Failures    int         `json:"transport_failures"`
	StatusCodes map[int]int `json:"status_codes"`
	P50         float64     `json:"p50_ms"`
	P90         float64     `json:"p90_ms"`
	P95         float64     `json:"p95_ms"`
	P99         float64     `json:"p99_ms"`
}

func (s *routeStats) summarize() routeSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := routeSummary{
		Total:       len(s.latencies),
		Failures:    s.failures,
		StatusCodes: s.statusCodes,
	}
	if len(s.latencies) == 0 {
		return sum
	}

	tmp := append([]time.Duration(nil), s.latencies...)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	pick := func(p float64) float64 {
		return float64(tmp[int(float64(len(tmp)-1)*p)].Microseconds()) / 1000.0
	}
	sum.P50, sum.P90, sum.P95, sum.P99 = pick(0.50), pick(0.90), pick(0.95), pick(0.99)
	return sum
}

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8000", "Proxy base URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 500, "Total number of requests to send")
		timeout     = flag.Duration("timeout", 35*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	stats := make(map[string]*routeStats, len(targets))
	for _, t := range targets {
		stats[t.route] = &routeStats{statusCodes: make(map[int]int)}
	}

	var ok, notOK atomic.Int64
	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				target := targets[idx%len(targets)]
				rs := stats[target.route]

				req, err := http.NewRequest(http.MethodGet, *baseURL+target.path(idx), nil)
				if err != nil {
					notOK.Add(1)
					continue
				}
				req.Header.Set("X-Request-ID", uuid.NewString())

				began := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(began)

				rs.mu.Lock()
				rs.latencies = append(rs.latencies, dur)
				if err != nil {
					rs.failures++
					rs.mu.Unlock()
					notOK.Add(1)
					continue
				}
				rs.statusCodes[resp.StatusCode]++
				rs.mu.Unlock()

				if resp.StatusCode == http.StatusOK {
					ok.Add(1)
				} else {
					notOK.Add(1)
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *baseURL)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("200: %d  Other: %d\n", ok.Load(), notOK.Load())
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, float64(*requests)/elapsed.Seconds())

	report := make(map[string]routeSummary, len(stats))
	fmt.Println("\nPer route:")
	for _, t := range targets {
		s := stats[t.route].summarize()
		report[t.route] = s
		fmt.Printf("  %s -> total=%d transport_failures=%d codes=%v p50=%.1fms p95=%.1fms p99=%.1fms\n",
			t.route, s.Total, s.Failures, s.StatusCodes, s.P50, s.P95, s.P99)
	}

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"target":         *baseURL,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"duration_ms":    elapsed.Milliseconds(),
			"throughput_rps": float64(*requests) / elapsed.Seconds(),
			"routes":         report,
		})
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if notOK.Load() > 0 {
		os.Exit(2)
	}
}
