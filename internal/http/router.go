package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/simple-tenancy/internal/config"
	"github.com/tendant/simple-tenancy/internal/http/features/licenses"
	"github.com/tendant/simple-tenancy/internal/http/features/market"
	"github.com/tendant/simple-tenancy/internal/http/features/me"
	"github.com/tendant/simple-tenancy/internal/http/features/memories"
	sessionsfeature "github.com/tendant/simple-tenancy/internal/http/features/sessions"
	skillsfeature "github.com/tendant/simple-tenancy/internal/http/features/skills"
	"github.com/tendant/simple-tenancy/internal/http/features/tenants"
	"github.com/tendant/simple-tenancy/internal/http/features/users"
	"github.com/tendant/simple-tenancy/internal/http/middleware"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/internal/metrics"
	"github.com/tendant/simple-tenancy/pkg/auth"
	"github.com/tendant/simple-tenancy/pkg/license"
	"github.com/tendant/simple-tenancy/pkg/memory"
	"github.com/tendant/simple-tenancy/pkg/sessions"
	"github.com/tendant/simple-tenancy/pkg/skills"
	"github.com/tendant/simple-tenancy/pkg/tenant"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Directory *tenant.Directory
	Licenses  *license.Engine
	Gate      *auth.Gate
	Memories  *memory.Store
	Skills    *skills.Registry
	Market    *skills.Market
	Sessions  *sessions.Store

	AdminToken         string
	RateLimitConfig    config.RateLimitConfig
	SecurityHeaders    config.SecurityHeadersConfig
	MaxRequestBodySize int64
}

// NewRouter creates a new HTTP router with all routes registered.
//
// Operator routes live under /v1/admin behind the admin token. Tenant routes
// live under /v1 and require an identified user of a licensed tenant.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Instrument(m))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, logger, m.RateLimited)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.AdminToken))
		r.Use(rateLimiters["admin"])

		tenants.NewHandler(logger, cfg.Directory).RegisterRoutes(r)
		users.NewHandler(logger, cfg.Gate, cfg.Licenses, m.LicenseDenials).RegisterRoutes(r)
		licenses.NewHandler(logger, cfg.Licenses).RegisterRoutes(r)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Identify(cfg.Gate))
		r.Use(middleware.RequireLicense(cfg.Licenses, m.LicenseDenials, logger))
		r.Use(rateLimiters["tenant"])

		me.NewHandler(logger, cfg.Directory, cfg.Licenses).RegisterRoutes(r)
		memories.NewHandler(logger, cfg.Memories).RegisterRoutes(r)
		skillsfeature.NewHandler(logger, cfg.Skills).RegisterRoutes(r)
		market.NewHandler(logger, cfg.Market).RegisterRoutes(r, skillsfeature.PermissionWrite)
		sessionsfeature.NewHandler(logger, cfg.Sessions, cfg.Licenses, m.LicenseDenials).RegisterRoutes(r)
	})

	return r
}
