package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/app/controllers"
	"github.com/ManuelReschke/BizDesk/app/repository"
	"github.com/ManuelReschke/BizDesk/internal/pkg/archive"
	"github.com/ManuelReschke/BizDesk/internal/pkg/billing"
	"github.com/ManuelReschke/BizDesk/internal/pkg/cache"
	"github.com/ManuelReschke/BizDesk/internal/pkg/config"
	"github.com/ManuelReschke/BizDesk/internal/pkg/database"
	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
	"github.com/ManuelReschke/BizDesk/internal/pkg/identity"
	"github.com/ManuelReschke/BizDesk/internal/pkg/logging"
	"github.com/ManuelReschke/BizDesk/internal/pkg/metrics"
	"github.com/ManuelReschke/BizDesk/internal/pkg/router"
)

const (
	exitRuntime       = 1
	exitMissingConfig = 78 // EX_CONFIG

	upsertLockTTL = 10 * time.Second
	gateIdleTTL   = 24 * time.Hour
	gateSweepTick = 10 * time.Minute
)

func main() {
	env.SetupEnvFile()
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		if config.IsMissing(err) {
			log.Error().Err(err).Msg("configuration incomplete")
			os.Exit(exitMissingConfig)
		}
		log.Error().Err(err).Msg("configuration invalid")
		os.Exit(exitRuntime)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(exitRuntime)
	}

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	log.Info().Str("addr", addr).Msg("bizdesk listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func NewApplication(cfg *config.Config) (*fiber.App, error) {
	database.SetupDatabase(cfg.DatabaseDSN)
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	users := repository.GetGlobalFactory().GetUserRepository()
	accounts := identity.NewProvisioner(users)
	store := billing.NewRepository(database.GetDB())

	svc := billing.NewService(
		store,
		billing.NewStripeProvider(cfg.StripeSecretKey),
		accounts,
		billing.WithLocker(cache.NewKeyLocker(cache.GetClient(), upsertLockTTL)),
	)
	checker := entitlements.NewChecker(store)

	// The web process asks the query service in-process unless a remote
	// endpoint is configured.
	var gateChecker gate.Checker = checker
	if cfg.QueryURL != "" {
		gateChecker = gate.NewHTTPChecker(cfg.QueryURL, cfg.StoreServiceKey)
	}
	gates := gate.NewRegistry(gateChecker)
	go sweepGates(gates)

	var archiver archive.Archiver
	archiveCfg, err := archive.LoadConfig()
	if err != nil {
		return nil, err
	}
	if archiveCfg.IsEnabled() {
		client, err := archive.NewClient(context.Background(), archiveCfg)
		if err != nil {
			return nil, fmt.Errorf("webhook archive: %w", err)
		}
		archiver = client
	}

	controllers.Configure(controllers.Dependencies{
		Billing:       svc,
		Entitlements:  checker,
		Identity:      accounts,
		Gates:         gates,
		Archive:       archiver,
		Metrics:       metrics.Get(),
		WebhookSecret: cfg.StripeWebhookSecret,
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "BizDesk",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: findProjectFile("public/docs/v1/openapi.yml"),
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Options{
		Gates:            gates,
		StoreServiceKey:  cfg.StoreServiceKey,
		IdentityAdminKey: cfg.IdentityAdminKey,
	})

	return app, nil
}

func sweepGates(gates *gate.Registry) {
	ticker := time.NewTicker(gateSweepTick)
	defer ticker.Stop()
	for range ticker.C {
		if n := gates.Sweep(gateIdleTTL); n > 0 {
			log.Debug().Int("removed", n).Msg("[Gate] Swept idle sessions")
		}
	}
}

// findProjectFile resolves rel from the working directory or the repository root.
func findProjectFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return rel
}
