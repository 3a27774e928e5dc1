// Command api runs the reconciliation HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestbooks/reconcile-backend/internal/api"
	"github.com/crestbooks/reconcile-backend/internal/application/service"
	"github.com/crestbooks/reconcile-backend/internal/domain/match"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/config"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/logging"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "path", cfg.Storage.DatabasePath)
		os.Exit(1)
	}
	defer repo.Close()

	svc := service.NewReconciliationService(repo, matchConfigFrom(cfg.Matching), logger)
	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}

// matchConfigFrom converts the YAML-facing matching config into the engine's
// form. An unparsable tolerance falls back to the default.
func matchConfigFrom(mc config.MatchingConfig) match.Config {
	cfg := match.Config{
		AutoThreshold:    mc.AutoThreshold,
		SuggestThreshold: mc.SuggestThreshold,
		DateWindowDays:   mc.DateWindowDays,
		AmountWeight:     mc.AmountWeight,
		DateWeight:       mc.DateWeight,
		ReferenceBonus:   mc.ReferenceBonus,
		DescriptionBonus: mc.DescriptionBonus,
	}
	tolerance, err := decimal.NewFromString(mc.AmountTolerance)
	if err != nil {
		tolerance = match.DefaultConfig().AmountTolerance
	}
	cfg.AmountTolerance = tolerance
	return cfg
}
