package handler

import (
	"net/http"
	"strings"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// RedirectHandler serves GET <mount>/<componentId>/<branch>. It never reveals
// to the client why a request fell back.
type RedirectHandler struct {
	resolver ports.Resolver
	mount    string
}

func NewRedirectHandler(resolver ports.Resolver, mount string) *RedirectHandler {
	return &RedirectHandler{resolver: resolver, mount: strings.TrimRight(mount, "/")}
}

// Mount routes every request under the mount to redirect and everything else
// to next. It runs ahead of ServeMux, which would answer unclean paths such as
// "//" or ".." with a 301 and decode "%2F" before the resolver sees it.
func (h *RedirectHandler) Mount(redirect, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.remainder(r); !ok {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		redirect.ServeHTTP(w, r)
	})
}

// remainder returns the escaped path after the mount, and whether the request
// is under the mount at all.
func (h *RedirectHandler) remainder(r *http.Request) (string, bool) {
	escaped := r.URL.EscapedPath()
	if escaped == h.mount {
		return "", true
	}
	rest, ok := strings.CutPrefix(escaped, h.mount+"/")
	return rest, ok
}

func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	path, _ := h.remainder(r)
	out := h.resolver.Resolve(r.Context(), path)

	// destinations are mutable
	w.Header().Set("Cache-Control", "no-store")

	if out.Kind == domain.OutcomeServerError {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, out.Location, http.StatusTemporaryRedirect)
}
