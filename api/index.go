package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/handler"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
	"github.com/wadjakorntonsri/pretty-links/pkg/core/services"
	"github.com/wadjakorntonsri/pretty-links/pkg/logger"
	"github.com/wadjakorntonsri/pretty-links/pkg/metrics"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	metrics.Register()

	// On Vercel a local sqlite file is ephemeral; use a libsql:// URL or another backend
	repo, err := repository.New(context.Background(), cfg)
	if err != nil {
		panic(err)
	}

	service := services.NewComponentService(repo, cfg.MultiTenant)
	resolver := services.NewResolver(repo, cfg.FallbackURL, cfg.LookupTimeout)
	mux = handler.NewRouter(cfg, service, resolver)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
