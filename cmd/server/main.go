package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stocktrack/internal/analytics"
	"stocktrack/internal/config"
	httpapi "stocktrack/internal/http"
	"stocktrack/internal/ledger"
	"stocktrack/internal/registry"
	"stocktrack/internal/store"
	"stocktrack/internal/store/file"
	"stocktrack/internal/store/postgres"
	"stocktrack/internal/suggest"
	"stocktrack/pkg/logger"
)

func main() {
	log := logger.Must(logger.New())
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config error", zap.Error(err))
	}

	ctx := context.Background()
	st, cleanup, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store error", zap.Error(err))
	}
	defer cleanup()

	var suggester suggest.Suggester = suggest.Static(cfg.DefaultCategory)
	if cfg.SuggesterURL != "" {
		suggester = suggest.NewClient(cfg.SuggesterURL, cfg.SuggesterKey)
	}

	reg := registry.New(st, suggester, cfg.DefaultCategory, log)
	led := ledger.New(st, log)

	forecastCfg := analytics.ForecastConfig{
		Window:  cfg.ForecastWindow,
		Weights: cfg.ForecastWeights,
	}
	eng, err := analytics.NewEngine(st, forecastCfg, log)
	if err != nil {
		log.Fatal("analytics config error", zap.Error(err))
	}

	handler := httpapi.NewHandler(reg, led, eng)
	router := httpapi.NewRouter(handler, log)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			log.Warn("force close failed", zap.Error(closeErr))
		}
	}
}

// openStore picks the postgres backend when DATABASE_URL is set and the
// flat-file backend otherwise.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("using postgres store")
		return postgres.New(pool), pool.Close, nil
	}

	st, err := file.Open(cfg.DataDir, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using flat-file store", zap.String("dir", cfg.DataDir))
	return st, st.Close, nil
}
