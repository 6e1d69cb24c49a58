package handler

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.ComponentService, resolver ports.Resolver) http.Handler {
	ch := NewComponentHandler(service)
	rh := NewRedirectHandler(resolver, cfg.RedirectMount)
	mw := NewMiddleware(cfg)
	authHandler := NewAuthHandler(cfg)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/components", ch.Create)
	protectedMux.HandleFunc("GET /api/v1/components", ch.List)
	protectedMux.HandleFunc("GET /api/v1/components/{id}", ch.Get)
	protectedMux.HandleFunc("PATCH /api/v1/components/{id}", ch.Update)
	protectedMux.HandleFunc("PUT /api/v1/components/{id}", ch.Update)
	protectedMux.HandleFunc("DELETE /api/v1/components/{id}", ch.Delete)

	// protectedMux holds full paths, so mounting it at /api/v1/ dispatches as-is.
	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	// Redirects bypass the mux so malformed paths still reach the resolver.
	// The bare mount and "<mount>/" resolve to the fallback.
	redirect := mw.RateLimit(http.HandlerFunc(rh.Redirect))
	return Recover(RequestLogger(rh.Mount(redirect, mux)))
}
