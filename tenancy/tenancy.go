// Package tenancy assembles the multi-tenant agent platform: the tenant
// directory, licensing, the user gate, memories, skills, the skill market and
// conversation sessions, served over one HTTP router.
//
// In memory only:
//
//	p, err := tenancy.New(tenancy.Config{AdminToken: "secret"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", p.Router())
//
// Backed by a database, with state restored at start-up:
//
//	db, _ := repository.Open(ctx, repository.Config{Dialect: repository.SQLite, DSN: "data/tenancy.db"})
//	_ = db.Migrate(ctx)
//
//	p, _ := tenancy.New(tenancy.Config{DB: db, AdminToken: "secret"})
//	if err := p.Hydrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	p.Start(ctx) // license expiry sweep
//	defer p.Stop()
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-tenancy/internal/config"
	httpserver "github.com/tendant/simple-tenancy/internal/http"
	"github.com/tendant/simple-tenancy/internal/jobs"
	"github.com/tendant/simple-tenancy/internal/metrics"
	"github.com/tendant/simple-tenancy/pkg/auth"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/license"
	"github.com/tendant/simple-tenancy/pkg/memory"
	"github.com/tendant/simple-tenancy/pkg/repository"
	"github.com/tendant/simple-tenancy/pkg/sessions"
	"github.com/tendant/simple-tenancy/pkg/skills"
	"github.com/tendant/simple-tenancy/pkg/tenant"
	"golang.org/x/sync/errgroup"
)

// DefaultSweepCron runs the license expiry sweep every five minutes.
const DefaultSweepCron = "*/5 * * * *"

// Config holds the configuration of a platform.
type Config struct {
	// DB mirrors every change when set. Without it all state lives in
	// process and is lost on exit.
	DB *repository.DB

	// AdminToken guards the /v1/admin routes (required).
	AdminToken string

	// SweepCron schedules the license expiry sweep (default: DefaultSweepCron).
	SweepCron string

	RateLimit          config.RateLimitConfig
	SecurityHeaders    config.SecurityHeadersConfig
	MaxRequestBodySize int64

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// Platform owns every component of one running deployment.
type Platform struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	sweeper *jobs.Sweeper

	Directory *tenant.Directory
	Licenses  *license.Engine
	Gate      *auth.Gate
	Memories  *memory.Store
	Skills    *skills.Registry
	Market    *skills.Market
	Sessions  *sessions.Store

	repos *repos
}

type repos struct {
	tenants  *repository.TenantsRepository
	users    *repository.UsersRepository
	licenses *repository.LicensesRepository
	memories *repository.MemoriesRepository
	skills   *repository.SkillsRepository
	sessions *repository.SessionsRepository
}

// New wires a platform. Call Hydrate before serving when cfg.DB holds data.
func New(cfg Config) (*Platform, error) {
	if cfg.AdminToken == "" {
		return nil, errors.New("admin token is required")
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = DefaultSweepCron
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Platform{
		config:  cfg,
		logger:  cfg.Logger,
		metrics: metrics.New(),
	}

	// A nil repository must reach the components as an untyped nil backend.
	if cfg.DB != nil {
		r := &repos{
			tenants:  repository.NewTenantsRepository(cfg.DB),
			users:    repository.NewUsersRepository(cfg.DB),
			licenses: repository.NewLicensesRepository(cfg.DB),
			memories: repository.NewMemoriesRepository(cfg.DB),
			skills:   repository.NewSkillsRepository(cfg.DB),
			sessions: repository.NewSessionsRepository(cfg.DB),
		}
		p.repos = r
		p.Directory = tenant.NewDirectory(r.tenants)
		p.Licenses = license.NewEngine(r.licenses)
		p.Gate = auth.NewGate(p.Directory, r.users)
		p.Memories = memory.NewStore(r.memories)
		p.Skills = skills.NewRegistry(r.skills)
		p.Sessions = sessions.NewStore(r.sessions, r.sessions)
	} else {
		p.Directory = tenant.NewDirectory(nil)
		p.Licenses = license.NewEngine(nil)
		p.Gate = auth.NewGate(p.Directory, nil)
		p.Memories = memory.NewStore(nil)
		p.Skills = skills.NewRegistry(nil)
		p.Sessions = sessions.NewStore(nil, nil)
	}
	p.Market = skills.NewMarket(p.Skills)

	sweeper, err := jobs.NewSweeper(p.Licenses, cfg.SweepCron, p.logger, p.metrics.LicensesExpired)
	if err != nil {
		return nil, fmt.Errorf("license sweeper: %w", err)
	}
	p.sweeper = sweeper

	return p, nil
}

// Hydrate loads every persisted entity into the in-memory components. It is
// a no-op without a database.
func (p *Platform) Hydrate(ctx context.Context) error {
	if p.repos == nil {
		return nil
	}

	var (
		tenants  []*domain.Tenant
		users    []*domain.User
		lics     []*domain.License
		items    []*domain.MemoryItem
		skillSet []*domain.Skill
		sess     []*domain.Session
		msgs     []*domain.Message
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { tenants, err = p.repos.tenants.List(ctx); return })
	g.Go(func() (err error) { users, err = p.repos.users.List(ctx); return })
	g.Go(func() (err error) { lics, err = p.repos.licenses.List(ctx); return })
	g.Go(func() (err error) { items, err = p.repos.memories.List(ctx); return })
	g.Go(func() (err error) { skillSet, err = p.repos.skills.List(ctx); return })
	g.Go(func() (err error) { sess, err = p.repos.sessions.List(ctx); return })
	g.Go(func() (err error) { msgs, err = p.repos.sessions.ListMessages(ctx, ""); return })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	p.Directory.Load(tenants...)
	p.Gate.LoadUsers(users...)
	p.Licenses.Load(lics...)
	p.Memories.Load(items...)
	p.Skills.Load(skillSet...)
	p.Sessions.Load(sess...)
	p.Sessions.LoadMessages(msgs...)

	p.logger.Info("state restored",
		"tenants", len(tenants),
		"users", len(users),
		"licenses", len(lics),
		"memories", len(items),
		"skills", len(skillSet),
		"sessions", len(sess),
		"messages", len(msgs),
	)
	return nil
}

// Start runs the license expiry sweep until ctx is done or Stop is called.
func (p *Platform) Start(ctx context.Context) {
	p.sweeper.Start(ctx)
}

// Stop halts the license expiry sweep.
func (p *Platform) Stop() {
	p.sweeper.Stop()
}

// Router returns the HTTP handler serving the admin and tenant APIs, plus
// /health and /metrics.
func (p *Platform) Router() http.Handler {
	return httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             p.logger,
		Metrics:            p.metrics,
		Directory:          p.Directory,
		Licenses:           p.Licenses,
		Gate:               p.Gate,
		Memories:           p.Memories,
		Skills:             p.Skills,
		Market:             p.Market,
		Sessions:           p.Sessions,
		AdminToken:         p.config.AdminToken,
		RateLimitConfig:    p.config.RateLimit,
		SecurityHeaders:    p.config.SecurityHeaders,
		MaxRequestBodySize: p.config.MaxRequestBodySize,
	})
}
