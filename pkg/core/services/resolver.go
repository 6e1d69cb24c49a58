package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/logger"
	"github.com/wadjakorntonsri/pretty-links/pkg/metrics"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// Fallback reasons. They end up in logs and metric labels, never in responses.
const (
	ReasonResolved      = "resolved"
	ReasonMalformedPath = "malformed_path"
	ReasonUnknownBranch = "unknown_branch"
	ReasonNotFound      = "not_found"
	ReasonEmptyURL      = "empty_url"
	ReasonStorageError  = "storage_error"
	ReasonLookupTimeout = "lookup_timeout"
)

const (
	DefaultLookupTimeout  = 2 * time.Second
	DefaultFallbackTarget = "/"
)

// Resolver decides where a "<componentId>/<branch>" path redirects to.
// It holds no per-request state.
type Resolver struct {
	repo        ports.ComponentRepository
	fallbackURL string
	timeout     time.Duration
}

func NewResolver(repo ports.ComponentRepository, fallbackURL string, timeout time.Duration) *Resolver {
	if fallbackURL == "" {
		fallbackURL = DefaultFallbackTarget
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{repo: repo, fallbackURL: fallbackURL, timeout: timeout}
}

// Resolve maps path to an outcome. Path is the escaped request path after the
// mount prefix; it is split on "/" before each segment is unescaped, so an
// encoded slash never creates a segment. Every input ends in a redirect, a
// fallback or a server error.
func (r *Resolver) Resolve(ctx context.Context, path string) domain.Outcome {
	out := r.resolve(ctx, path)
	metrics.Redirects.WithLabelValues(out.Kind.String(), out.Reason).Inc()

	log := logger.WithContext(ctx).WithFields(map[string]interface{}{
		"component_id": out.ComponentID,
		"branch":       out.Branch,
		"outcome":      out.Kind.String(),
		"reason":       out.Reason,
	})
	switch {
	case out.Kind == domain.OutcomeServerError:
		log.WithError(out.Err).Error("redirect lookup failed")
	case out.Reason == ReasonEmptyURL:
		log.Warn("component has no destination for branch")
	case out.Kind == domain.OutcomeFallback:
		log.Info("redirecting to fallback")
	default:
		log.Debug("redirect resolved")
	}
	return out
}

func (r *Resolver) resolve(ctx context.Context, path string) domain.Outcome {
	id, rawBranch, ok := splitPath(path)
	if !ok {
		return r.fallback(domain.Outcome{Err: domain.ErrMalformedRequest}, ReasonMalformedPath)
	}
	out := domain.Outcome{ComponentID: id, Branch: rawBranch}

	branch, ok := domain.ParseBranch(rawBranch)
	if !ok {
		out.Err = domain.ErrMalformedRequest
		return r.fallback(out, ReasonUnknownBranch)
	}

	component, err := r.lookup(ctx, id)
	if err != nil {
		out.Err = err
		if domain.IsNotFound(err) {
			return r.fallback(out, ReasonNotFound)
		}
		out.Kind = domain.OutcomeServerError
		out.Reason = ReasonStorageError
		if errors.Is(err, context.DeadlineExceeded) {
			out.Reason = ReasonLookupTimeout
		}
		return out
	}

	location := component.URLFor(branch)
	if location == "" {
		return r.fallback(out, ReasonEmptyURL)
	}
	out.Kind = domain.OutcomeRedirect
	out.Location = location
	out.Reason = ReasonResolved
	return out
}

// splitPath returns the two unescaped segments of "<id>/<branch>". Empty,
// dot and undecodable segments are rejected.
func splitPath(path string) (id, branch string, ok bool) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) != 2 {
		return "", "", false
	}
	for i, seg := range segments {
		decoded, err := url.PathUnescape(seg)
		if err != nil || decoded == "" || decoded == "." || decoded == ".." {
			return "", "", false
		}
		segments[i] = decoded
	}
	return segments[0], segments[1], true
}

type lookupResult struct {
	component *domain.Component
	err       error
}

// lookup bounds the store call by the resolver timeout, even for a backend
// that ignores ctx.
func (r *Resolver) lookup(ctx context.Context, id string) (*domain.Component, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan lookupResult, 1)
	go func() {
		c, err := r.repo.Get(ctx, id)
		done <- lookupResult{component: c, err: err}
	}()

	var res lookupResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = domain.NewStorageError("get", ctx.Err())
	}

	result := "hit"
	switch {
	case domain.IsNotFound(res.err):
		result = "miss"
	case res.err != nil:
		result = "error"
	}
	metrics.LookupDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return res.component, res.err
}

func (r *Resolver) fallback(out domain.Outcome, reason string) domain.Outcome {
	out.Kind = domain.OutcomeFallback
	out.Location = r.fallbackURL
	out.Reason = reason
	return out
}

// Ensure interface compliance
var _ ports.Resolver = (*Resolver)(nil)
