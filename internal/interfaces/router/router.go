package router

import (
	"context"
	"errors"
	"net/http"

	"pm-backend/internal/application/access"
	authsvc "pm-backend/internal/application/auth"
	"pm-backend/internal/application/identity"
	intsvc "pm-backend/internal/application/integrations"
	wssvc "pm-backend/internal/application/workspaces"
	"pm-backend/internal/config"
	"pm-backend/internal/infrastructure/database"
	authhandler "pm-backend/internal/interfaces/handlers/auth"
	healthhandler "pm-backend/internal/interfaces/handlers/health"
	inthandler "pm-backend/internal/interfaces/handlers/integrations"
	permhandler "pm-backend/internal/interfaces/handlers/permissions"
	userhandler "pm-backend/internal/interfaces/handlers/user"
	wshandler "pm-backend/internal/interfaces/handlers/workspaces"
	"pm-backend/internal/middleware"
	"pm-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp opens the database and Redis from cfg, migrates, seeds default grants and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, errors.New("database url is not set")
	}
	if cfg.RedisURL == "" {
		return nil, nil, nil, errors.New("REDIS_URL is not set")
	}
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}
	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	app, err := Build(cfg, db, rdb)
	if err != nil {
		return nil, nil, nil, err
	}
	return app, db, rdb, nil
}

// Build wires services, middleware and routes over an open database and Redis client.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*fiber.App, error) {
	seed, err := identity.LoadGrantSeed(cfg.PermissionSeedFile)
	if err != nil {
		return nil, err
	}
	if err := identity.SeedIfEmpty(context.Background(), db, seed); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))

	tokens := &intsvc.TokenService{Secret: []byte(cfg.SessionSecret), TTL: cfg.IntegrationTokenTTL}
	app.Use(middleware.BearerAuth(tokens))

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}

	idSvc := &identity.Service{DB: db, Rdb: rdb, StrictRoles: cfg.StrictOrgRoles}
	ws := &wssvc.Service{DB: db}
	acc := &access.Service{Identity: idSvc, Memberships: ws}
	perm := func(module, action string) fiber.Handler {
		return middleware.RequirePMPermission(acc, module, action)
	}

	ah := &authhandler.Handlers{
		UserFinder: &authsvc.GormUserFinder{DB: db},
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	uh := &userhandler.Handlers{Identity: idSvc}
	ug := app.Group("/api/v1/users", middleware.RequireAuth())
	ug.Patch("/update-role", middleware.RequireOrgAdmin(), uh.UpdateRole)

	ph := &permhandler.Handlers{Access: acc, Identity: idSvc}
	pg := app.Group("/api/v1/pm/permissions", middleware.RequireAuth())
	pg.Post("/check", ph.Check)
	pg.Get("/grants", middleware.RequireOrgAdmin(), ph.ListGrants)
	pg.Post("/grants", middleware.RequireOrgAdmin(), ph.Grant)
	pg.Delete("/grants", middleware.RequireOrgAdmin(), ph.Revoke)

	wh := &wshandler.Handlers{Service: ws, Access: acc, Identity: idSvc}
	wg := app.Group("/api/v1/pm/workspaces", middleware.RequireAuth())
	wg.Get("/", middleware.RequireWorkspaceScope(), wh.List)
	wg.Post("/", perm(constants.ModuleProjects, constants.ActionCreate), wh.Create)
	wg.Get("/:workspace_id", perm(constants.ModuleProjects, constants.ActionView), wh.Get)
	wg.Patch("/:workspace_id", perm(constants.ModuleProjects, constants.ActionEdit), wh.Update)
	wg.Delete("/:workspace_id", perm(constants.ModuleProjects, constants.ActionDelete), wh.Delete)
	wg.Get("/:workspace_id/my-role", middleware.RequireWorkspaceScope(), wh.MyRole)
	wg.Get("/:workspace_id/audit", perm(constants.ModuleMembers, constants.ActionView), wh.Audit)
	wg.Get("/:workspace_id/members", perm(constants.ModuleMembers, constants.ActionView), wh.ListMembers)
	wg.Post("/:workspace_id/members", perm(constants.ModuleMembers, constants.ActionCreate), wh.AddMember)
	wg.Patch("/:workspace_id/members/:user_id", perm(constants.ModuleMembers, constants.ActionEdit), wh.UpdateMember)
	wg.Delete("/:workspace_id/members/:user_id", perm(constants.ModuleMembers, constants.ActionDelete), wh.RemoveMember)

	ih := &inthandler.Handlers{Tokens: tokens}
	wg.Post("/:workspace_id/integrations/tokens", perm(constants.ModuleIntegrations, constants.ActionCreate), ih.IssueToken)

	log.Info().Str("env", cfg.Env).Str("db_driver", cfg.DBDriver).Bool("strict_org_roles", cfg.StrictOrgRoles).
		Msg("router: routes registered")
	return app, nil
}

// Handler returns an http.Handler for serverless runtimes.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
