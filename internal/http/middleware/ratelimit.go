package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-tenancy/internal/config"
	"github.com/tendant/simple-tenancy/internal/httputil"
)

// RateLimitConfig holds rate limiting configuration for one route group.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
	// Rejected counts limited requests when set.
	Rejected prometheus.Counter
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, httprate.KeyByIP)
}

// TenantRateLimit limits requests per tenant with a sliding window.
// Requests without a tenant in the context share the key of their IP.
// Must run after Identify.
func TenantRateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, func(r *http.Request) (string, error) {
		if tenantID, ok := GetTenantID(r.Context()); ok {
			return "tenant:" + tenantID, nil
		}
		return httprate.KeyByIP(r)
	})
}

func limit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Rejected != nil {
				cfg.Rejected.Inc()
			}
			if cfg.Logger != nil {
				tenantID, _ := GetTenantID(r.Context())
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"tenant_id", tenantID,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates the rate limiting middleware of each route group
// from configuration. "tenant" keys by tenant, "admin" by IP.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger, rejected prometheus.Counter) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			"tenant": noOp,
			"admin":  noOp,
		}
	}

	group := RateLimitConfig{
		Requests: cfg.Requests,
		Window:   cfg.Window,
		Logger:   logger,
		Rejected: rejected,
	}
	return map[string]func(http.Handler) http.Handler{
		"tenant": TenantRateLimit(group),
		"admin":  RateLimit(group),
	}
}
