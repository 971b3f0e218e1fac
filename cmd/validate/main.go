// Command validate smoke-tests the read-only endpoints of a running cashflow
// server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type endpoint struct {
	path     string
	status   int
	contains []string
}

var endpoints = []endpoint{
	{path: "/api/health", status: http.StatusOK, contains: []string{`"status":"ok"`}},

	// Dashboard
	{path: "/api/dashboard", status: http.StatusOK, contains: []string{`"summary"`, `"buckets"`}},
	{path: "/api/dashboard?range=6m&fill=true", status: http.StatusOK, contains: []string{`"viewRange":"6m"`}},
	{path: "/api/dashboard/summary", status: http.StatusOK, contains: []string{`"actualBalance"`, `"projectedBalance"`}},
	{path: "/api/dashboard/forecast?range=3m", status: http.StatusOK, contains: []string{`"window"`}},
	{path: "/api/dashboard?range=1y", status: http.StatusBadRequest, contains: []string{`"field":"viewRange"`}},

	// Transactions
	{path: "/api/transactions", status: http.StatusOK},
	{path: "/api/transactions?search=salary", status: http.StatusOK},
	{path: "/api/transactions/does-not-exist", status: http.StatusNotFound},
	{path: "/api/categories", status: http.StatusOK, contains: []string{`"Salary"`, `"Other"`}},
	{path: "/api/export", status: http.StatusOK},

	// Settings and storage
	{path: "/api/settings/theme", status: http.StatusOK, contains: []string{`"theme"`}},
	{path: "/api/storage/status", status: http.StatusOK, contains: []string{`"backend"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	parallel := flag.Int("parallel", 4, "Concurrent requests")
	flag.Parse()

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	results := make([]result, len(endpoints))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*parallel)
	for i, ep := range endpoints {
		i, ep := i, ep
		g.Go(func() error {
			results[i] = validateEndpoint(ctx, client, *url, ep)
			return nil
		})
	}
	g.Wait()

	var passed, failed int
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Printf("FAIL GET %s\n", r.endpoint.path)
			fmt.Printf("     Error: %v\n", r.err)
		default:
			passed++
			if *verbose {
				fmt.Printf("PASS GET %s %d (%v)\n", r.endpoint.path, r.status, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func validateEndpoint(ctx context.Context, client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
	}

	if resp.StatusCode != ep.status {
		r.err = fmt.Errorf("status %d (expected %d)", resp.StatusCode, ep.status)
		return r
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		r.err = fmt.Errorf("wrong content type: got %q", ct)
		return r
	}

	var js any
	if err := json.Unmarshal(body, &js); err != nil {
		r.err = fmt.Errorf("invalid JSON: %w", err)
		return r
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
