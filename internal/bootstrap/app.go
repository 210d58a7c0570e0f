package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/credits"
	"portfolio-backend/internal/deployments"
	"portfolio-backend/internal/drivers"
	"portfolio-backend/internal/generator"
	"portfolio-backend/internal/platformlinks"
	"portfolio-backend/internal/resumes"
	"portfolio-backend/internal/sessions"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/server"
	"portfolio-backend/internal/shared/storage/db"
	"portfolio-backend/internal/shared/storage/object"
	localstore "portfolio-backend/internal/shared/storage/object/local"
	s3store "portfolio-backend/internal/shared/storage/object/s3"
	"portfolio-backend/internal/templates"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	ResumesRepo     resumes.Repo
	TemplatesRepo   templates.Repo
	SessionsRepo    sessions.Repo
	DeploymentsRepo deployments.Repo
	LinksRepo       platformlinks.Repo

	Registry *drivers.Registry

	CreditsService     *credits.Service
	LinksService       *platformlinks.Service
	SessionsService    *sessions.Service
	DeploymentsService *deployments.Service

	SessionsHandler    *sessions.Handler
	DeploymentsHandler *deployments.Handler
	CreditsHandler     *credits.Handler
	LinksHandler       *platformlinks.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app)

	if app.DB == nil && isDevLike(cfg.Env) {
		seedDev(ctx, app)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Handlers: []server.RouteRegistrar{
			app.SessionsHandler,
			app.DeploymentsHandler,
			app.CreditsHandler,
			app.LinksHandler,
		},
		DevHandlers: []server.DevRouteRegistrar{
			app.CreditsHandler,
			app.LinksHandler,
		},
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	cfg := app.Config

	if app.DB != nil {
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
		app.TemplatesRepo = &templates.PGRepo{DB: app.DB}
		app.SessionsRepo = &sessions.PGRepo{DB: app.DB}
		app.DeploymentsRepo = &deployments.PGRepo{DB: app.DB}
		app.LinksRepo = &platformlinks.PGRepo{DB: app.DB}
		app.CreditsService = credits.NewPostgresService(credits.NewPGStore(app.DB, cfg.StartingCredits))
	} else {
		app.ResumesRepo = resumes.NewMemoryRepo()
		app.TemplatesRepo = templates.NewMemoryRepo()
		app.SessionsRepo = sessions.NewMemoryRepo()
		app.DeploymentsRepo = deployments.NewMemoryRepo()
		app.LinksRepo = platformlinks.NewMemoryRepo()
		app.CreditsService = credits.NewService(cfg.StartingCredits)
	}

	app.LinksService = platformlinks.NewService(app.LinksRepo)

	app.Registry = drivers.NewRegistry()
	app.Registry.Register(platformlinks.PlatformGitHub, drivers.NewGitHubDriver(cfg.GitHubAPIBase, app.LinksService))
	app.Registry.Register(platformlinks.PlatformVercel, drivers.NewVercelDriver(cfg.VercelAPIBase, app.LinksService))
	app.Registry.Register(platformlinks.PlatformNetlify, drivers.NewNetlifyDriver(cfg.NetlifyAPIBase, app.LinksService))

	app.SessionsService = sessions.NewService(
		app.SessionsRepo,
		app.ResumesRepo,
		app.TemplatesRepo,
		generator.NewSiteGenerator(),
		app.Store,
	)

	app.DeploymentsService = &deployments.Service{
		Repo:     app.DeploymentsRepo,
		Sessions: app.SessionsRepo,
		Links:    app.LinksService,
		Credits:  app.CreditsService,
		Registry: app.Registry,
		Store:    app.Store,
		Costs:    cfg.CreditCosts,
		Timeout:  cfg.DeployTimeout,
	}

	app.SessionsHandler = sessions.NewHandler(app.SessionsService)
	app.DeploymentsHandler = deployments.NewHandler(app.DeploymentsService)
	app.CreditsHandler = credits.NewHandler(app.CreditsService)
	app.LinksHandler = platformlinks.NewHandler(app.LinksService, app.Registry.Platforms())
}

// seedDev loads fixture resumes and templates so the memory-backed dev
// server is usable out of the box.
func seedDev(ctx context.Context, app *App) {
	resumeRepo, ok := app.ResumesRepo.(*resumes.MemoryRepo)
	templateRepo, tok := app.TemplatesRepo.(*templates.MemoryRepo)
	if !ok || !tok {
		return
	}

	_ = resumeRepo.Put(ctx, resumes.Resume{
		ID:     "resume-dev-1",
		UserID: "guest:dev",
		Title:  "Sample Resume",
		Data: map[string]any{
			"name":     "Ada Dev",
			"headline": "Software Engineer",
			"summary":  "Builds things.",
			"skills":   []any{"Go", "Postgres"},
		},
		CreatedAt: time.Now().UTC(),
	})
	_ = templateRepo.Put(ctx, templates.Template{ID: "template-minimal", Name: "Minimal"})
	_ = templateRepo.Put(ctx, templates.Template{ID: "template-studio", Name: "Studio", Premium: true})
}
