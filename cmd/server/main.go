package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/handler"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
	"github.com/wadjakorntonsri/pretty-links/pkg/core/services"
	"github.com/wadjakorntonsri/pretty-links/pkg/logger"
	"github.com/wadjakorntonsri/pretty-links/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log := logger.New().WithField("service", "pretty-links")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open record store")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.WithError(err).Warn("failed to close record store")
		}
	}()

	metrics.Register()

	service := services.NewComponentService(repo, cfg.MultiTenant)
	resolver := services.NewResolver(repo, cfg.FallbackURL, cfg.LookupTimeout)
	mux := handler.NewRouter(cfg, service, resolver)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithFields(map[string]interface{}{
		"port":    cfg.Port,
		"backend": cfg.StoreBackend,
		"mount":   cfg.RedirectMount,
	}).Info("server starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("server stopped")
}
