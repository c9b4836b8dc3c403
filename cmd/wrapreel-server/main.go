package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wrapreel/internal/api"
	"wrapreel/internal/auth"
	"wrapreel/internal/config"
	"wrapreel/internal/editor"
	"wrapreel/internal/events"
	"wrapreel/internal/job"
	"wrapreel/internal/provider"
	"wrapreel/internal/store"
	"wrapreel/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	demoShop  = "shop-demo"
	demoEmail = "demo@wrapreel.local"
)

func main() {
	cfg := config.Load()
	logger := telemetry.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	st := store.NewMemoryStore()
	authSvc := auth.NewService(st, cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err := authSvc.SeedOwner(demoShop, demoEmail, "demo123456"); err != nil {
		logger.Fatal("seed demo user failed", zap.Error(err))
	}

	hub := events.NewHub()
	var prov provider.Adapter = provider.NewMockAdapter()
	if cfg.RenderAPIKey != "" {
		prov = provider.NewCreatomateAdapter(cfg.RenderAPIURL, cfg.RenderAPIKey, cfg.RenderPollInterval, cfg.RenderTimeout)
	}
	jobSvc := job.NewService(st, hub, prov, logger.Named("job"), cfg.MaxConcurrentJob, cfg.MaxShopJobs)
	editors := editor.NewRegistry(st, logger.Named("editor"))

	srv := api.NewServer(authSvc, st, jobSvc, hub, editors, logger.Named("http"))
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_start",
			zap.String("addr", cfg.Addr),
			zap.String("demo_user", demoEmail),
			zap.Bool("creatomate", cfg.RenderAPIKey != ""),
			zap.Int("max_concurrent_tasks", cfg.MaxConcurrentJob),
			zap.Int("max_shop_jobs", cfg.MaxShopJobs),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server_stop")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Closing the hub ends open event streams so Shutdown can drain.
		hub.Close()
		err := httpSrv.Shutdown(shutdownCtx)
		if werr := jobSvc.Wait(shutdownCtx); werr != nil {
			logger.Warn("render jobs still running at shutdown", zap.Error(werr))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
}
