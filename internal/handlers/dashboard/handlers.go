package dashboard

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	apphttp "cashflow/internal/http"
	"cashflow/internal/models"
	"cashflow/internal/services/aggregator"
	"cashflow/internal/services/ledger"
)

var (
	book         *ledger.Ledger
	clock        aggregator.Clock
	results      *cache.Cache
	defaultRange models.ViewRange
)

// NewCache returns the dashboard result cache. Entries expire after ttl; a
// zero ttl keeps them until flushed.
func NewCache(ttl time.Duration) *cache.Cache {
	if ttl == 0 {
		return cache.New(cache.NoExpiration, 0)
	}
	return cache.New(ttl, 2*ttl)
}

// Initialize sets up the dashboard package with required dependencies. The
// cache is flushed whenever the ledger changes.
func Initialize(l *ledger.Ledger, c aggregator.Clock, rc *cache.Cache, vr models.ViewRange) {
	book = l
	clock = c
	results = rc
	defaultRange = vr

	l.OnChange(func(rev uint64) {
		results.Flush()
		slog.Debug("Dashboard cache flushed", "revision", rev)
	})
}

// RegisterRoutes registers all dashboard routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/dashboard", handleDashboard)
	r.Get("/api/dashboard/summary", handleSummary)
	r.Get("/api/dashboard/forecast", handleForecast)
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	vr, fill, err := apphttp.ParseViewQuery(r, defaultRange)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	d, err := build(vr, fill)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, d)
}

func handleSummary(w http.ResponseWriter, r *http.Request) {
	d, err := build(defaultRange, false)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, d.Summary)
}

func handleForecast(w http.ResponseWriter, r *http.Request) {
	vr, fill, err := apphttp.ParseViewQuery(r, defaultRange)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	d, err := build(vr, fill)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"viewRange": d.ViewRange,
		"window":    d.Window,
		"buckets":   d.Buckets,
	})
}

// build returns the dashboard for the current snapshot, reusing a cached
// result computed from the same revision on the same day
func build(vr models.ViewRange, fill bool) (*models.Dashboard, error) {
	now := clock.Now()
	transactions, rev := book.Snapshot()
	key := fmt.Sprintf("%d|%s|%t|%s", rev, vr, fill, now.Format(models.DateLayout))

	if cached, ok := results.Get(key); ok {
		return cached.(*models.Dashboard), nil
	}

	d, err := aggregator.Build(transactions, now, vr, aggregator.Options{FillGaps: fill})
	if err != nil {
		return nil, err
	}
	results.Set(key, d, cache.DefaultExpiration)
	return d, nil
}
