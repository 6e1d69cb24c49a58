package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
	"github.com/wadjakorntonsri/pretty-links/pkg/metrics"
)

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "testservlet",
	}
	mw := NewMiddleware(cfg)

	tests := []struct {
		name           string
		path           string
		cookieName     string
		cookieValue    string
		expectedStatus int
	}{
		{
			name:           "No Cookie - API",
			path:           "/api/v1/components",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "No Cookie - Non-API Path",
			path:           "/dashboard",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Cookie - API",
			path:           "/api/v1/components",
			cookieName:     "auth_token",
			cookieValue:    "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret - API",
			path:           "/api/v1/components",
			cookieName:     "auth_token",
			cookieValue:    generateTestToken(t, "other-secret", "test@example.com", time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Cookie - API",
			path:           "/api/v1/components",
			cookieName:     "auth_token",
			cookieValue:    generateTestToken(t, cfg.JWTSecret, "test@example.com", -time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid Cookie - API",
			path:           "/api/v1/components",
			cookieName:     "auth_token",
			cookieValue:    generateTestToken(t, cfg.JWTSecret, "test@example.com", 5*time.Minute),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.cookieName != "" {
				req.AddCookie(&http.Cookie{Name: tt.cookieName, Value: tt.cookieValue})
			}

			rr := httptest.NewRecorder()
			handler := mw.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := PrincipalFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "test@example.com", p.OwnerID)
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	mw := NewMiddleware(&config.Config{RateLimitRPS: 0.5, RateLimitBurst: 1})
	handler := mw.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rejected := testutil.ToFloat64(metrics.RateLimitRejected)

	send := func(remote string) int {
		req := httptest.NewRequest("GET", "/r/card/main", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5678"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"), "limits are per client")
	assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.RateLimitRejected))
}

func TestRateLimitDisabled(t *testing.T) {
	mw := NewMiddleware(&config.Config{})
	handler := mw.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/r/card/main", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	mw := NewMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1})
	handler := mw.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rejected := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest("GET", "/r/card/main", nil)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			rejected++
		}
	}
	assert.GreaterOrEqual(t, rejected, 48)
	assert.Len(t, mw.visitors, 1, "rotating the header must not create limiters")
}

func TestClientIP(t *testing.T) {
	direct := NewMiddleware(&config.Config{})
	proxied := NewMiddleware(&config.Config{TrustedProxies: []string{"10.0.0.0/8"}})

	tests := []struct {
		name   string
		mw     *Middleware
		remote string
		xff    string
		want   string
	}{
		{"no proxy", direct, "192.0.2.1:4000", "", "192.0.2.1"},
		{"untrusted peer header ignored", direct, "192.0.2.1:4000", "203.0.113.7", "192.0.2.1"},
		{"trusted proxy", proxied, "10.0.0.5:4000", "203.0.113.7", "203.0.113.7"},
		{"right-most untrusted hop", proxied, "10.0.0.5:4000", "1.1.1.1, 203.0.113.7, 10.0.0.6", "203.0.113.7"},
		{"trusted proxy without header", proxied, "10.0.0.5:4000", "", "10.0.0.5"},
		{"untrusted peer behind proxied config", proxied, "192.0.2.1:4000", "203.0.113.7", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, tt.mw.clientIP(req))
		})
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	mw := NewMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mw.now = func() time.Time { return now }

	mw.limiter("192.0.2.1")
	mw.limiter("192.0.2.2")
	require.Len(t, mw.visitors, 2)

	now = now.Add(limiterIdleTTL + time.Second)
	mw.limiter("192.0.2.3")
	assert.Len(t, mw.visitors, 1)
	assert.Contains(t, mw.visitors, "192.0.2.3")
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
}

func TestRecover(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func generateTestToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return tokenString
}
