package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"cashflow/internal/config"
	"cashflow/internal/handlers/backup"
	"cashflow/internal/handlers/dashboard"
	"cashflow/internal/handlers/settings"
	"cashflow/internal/handlers/transactions"
	"cashflow/internal/logger"
	"cashflow/internal/models"
	"cashflow/internal/services/aggregator"
	"cashflow/internal/services/dataloader"
	"cashflow/internal/services/ledger"
	"cashflow/internal/services/preferences"
	"cashflow/internal/services/storage"
	"cashflow/internal/version"
)

var (
	cfg     *config.Config
	backend storage.Backend
	book    *ledger.Ledger
	prefs   *preferences.Store
	clock   aggregator.Clock = aggregator.SystemClock{}
)

const shutdownTimeout = 10 * time.Second

func init() {
	// Amounts are JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg = config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting cashflow", "version", version.Get().String())
	slog.Info("Storage", "backend", cfg.StorageBackend, "data_dir", cfg.DataDirectory)

	if err := SetupDependencies(cfg); err != nil {
		slog.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, SetupRouter()); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

// run serves handler until ctx is cancelled, then shuts down gracefully
func run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// SetupDependencies opens storage and wires every handler package
func SetupDependencies(c *config.Config) error {
	cfg = c

	defaultRange, err := models.ParseViewRange(cfg.ViewRange)
	if err != nil {
		return err
	}

	backend, err = storage.Open(cfg.StorageBackend, cfg.DataDirectory, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	if enc, ok := backend.(storage.Encryptable); ok && enc.IsEncrypted() {
		if err := unlock(enc, cfg.Password); err != nil {
			return err
		}
	}

	book, err = ledger.New(backend, clock.Now)
	if err != nil {
		return err
	}
	prefs, err = preferences.New(backend)
	if err != nil {
		return err
	}

	dashboard.Initialize(book, clock, dashboard.NewCache(cfg.CacheTTL), defaultRange)
	transactions.Initialize(book, dataloader.New(clock.Now))
	settings.Initialize(prefs)
	backup.Initialize(backend, cfg.StorageBackend, book, prefs, clock)
	return nil
}

// unlock opens encrypted storage with password, prompting on the terminal
// when none was configured
func unlock(enc storage.Encryptable, password string) error {
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("data directory is encrypted: set CASHFLOW_PASSWORD")
		}
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	if err := enc.Unlock(password); err != nil {
		return fmt.Errorf("unlock storage: %w", err)
	}
	slog.Info("Storage unlocked")
	return nil
}

// SetupRouter builds the HTTP router
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/dashboard", http.StatusTemporaryRedirect)
	})

	backup.RegisterRoutes(r)
	dashboard.RegisterRoutes(r)
	transactions.RegisterRoutes(r)
	settings.RegisterRoutes(r)

	return r
}

// requestLogger attaches a logger carrying the request id to the context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := slog.Default().With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}
