package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "secret"

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

type Config struct {
	Port      string
	AppEnv    string
	BaseURL   string
	LogLevel  string
	LogFormat string

	// Record Store
	StoreBackend  string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Redirect Resolver
	RedirectMount  string
	FallbackURL    string
	LookupTimeout  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string // IPs or CIDRs allowed to set X-Forwarded-For

	// Management API
	MultiTenant        bool
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:      v.GetString("PORT"),
		AppEnv:    v.GetString("APP_ENV"),
		BaseURL:   v.GetString("BASE_URL"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		StoreBackend:  strings.ToLower(v.GetString("STORE_BACKEND")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		MongoURI:      v.GetString("MONGODB_URI"),
		MongoDatabase: v.GetString("MONGODB_DATABASE"),
		MongoTimeout:  v.GetDuration("MONGODB_TIMEOUT"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		RedirectMount:  strings.TrimRight(v.GetString("REDIRECT_MOUNT"), "/"),
		FallbackURL:    v.GetString("FALLBACK_URL"),
		LookupTimeout:  v.GetDuration("LOOKUP_TIMEOUT"),
		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),

		MultiTenant:        v.GetBool("MULTI_TENANT"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		FrontendURL:        v.GetString("FRONTEND_URL"),
		AllowedEmails:      splitList(v.GetString("ALLOWED_EMAILS")),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_BACKEND", BackendSQLite)
	v.SetDefault("DATABASE_URL", "file:db.sqlite")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "prettylinks")
	v.SetDefault("MONGODB_TIMEOUT", "10s")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("REDIRECT_MOUNT", "/r")
	v.SetDefault("FALLBACK_URL", "/")
	v.SetDefault("LOOKUP_TIMEOUT", "2s")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	v.SetDefault("MULTI_TENANT", false)
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("FRONTEND_URL", "http://localhost:8080/dashboard")
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendSQLite, BackendMemory, BackendMongo, BackendRedis:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if !strings.HasPrefix(cfg.RedirectMount, "/") || len(cfg.RedirectMount) < 2 {
		return fmt.Errorf("REDIRECT_MOUNT must be a non-root path starting with /, got %q", cfg.RedirectMount)
	}
	if strings.ContainsAny(cfg.RedirectMount, "{}") {
		return fmt.Errorf("REDIRECT_MOUNT must not contain wildcards")
	}
	if cfg.FallbackURL == "" {
		return fmt.Errorf("FALLBACK_URL is required")
	}
	if cfg.LookupTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be positive")
	}
	if cfg.MongoTimeout <= 0 {
		return fmt.Errorf("MONGODB_TIMEOUT must be positive")
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if _, err := ParsePrefixes(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if cfg.AppEnv == "production" && (cfg.JWTSecret == "" || cfg.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// ParsePrefixes parses IPs and CIDRs. A bare IP becomes a single-address prefix.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
