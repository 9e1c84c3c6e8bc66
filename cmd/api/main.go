package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"propertybot/docs"
	"propertybot/internal/brochure"
	"propertybot/internal/classify"
	"propertybot/internal/config"
	"propertybot/internal/database"
	"propertybot/internal/database/migration"
	"propertybot/internal/extract"
	handlers "propertybot/internal/http/handler"
	"propertybot/internal/http/middleware"
	"propertybot/internal/logger"
	"propertybot/internal/metrics"
	"propertybot/internal/otel"
	"propertybot/internal/repository"
	mongorepo "propertybot/internal/repository/mongo"
	"propertybot/internal/repository/postgres"
	"propertybot/internal/rules"
	"propertybot/internal/service"
	"propertybot/internal/source"
	"propertybot/internal/storage"
)

const maxBodyBytes = 32 << 20

// @title Property Listing Ingestion API
// @version 1.0
// @description Turns group-chat listing messages and PDF brochures into structured property listings.
// @BasePath /
func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Pretty, cfg.Location())
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "propertybot-api")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	grammar := rules.Default()
	if cfg.RulesPath != "" {
		if grammar, err = rules.Load(cfg.RulesPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("failed to load rules")
		}
	}
	extractor, err := extract.New(grammar)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid extraction grammar")
	}
	classifier := classify.New(grammar.RejectPhrases)

	listingRepo, closeListings, err := openListingStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open listing store")
	}
	defer closeListings()

	store, err := openBrochureStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise brochure storage")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline, err := metrics.NewPipeline(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register pipeline metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	listingSvc := service.NewListingService(listingRepo)
	gateway := service.NewGateway(classifier, extractor, listingSvc, brochure.NewCapturer(store), pipeline)

	// Webhook deliveries go through the same path as every other source. With
	// LOCAL_BACKEND_ENDPOINT set they are posted to that gateway instead.
	var fwd source.Forwarder = source.NewLocalForwarder(gateway)
	if cfg.Forward.Endpoint != "" {
		fwd = source.NewHTTPForwarder(cfg.Forward.Endpoint, cfg.Forward.Timeout)
	}
	webhookDispatcher := source.NewDispatcher("webhook", fwd, cfg.Forward, pipeline)

	app := fiber.New(fiber.Config{
		AppName:      "propertybot",
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    maxBodyBytes,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Routes{
		BasePath:    cfg.APIBasePath,
		Listings:    listingSvc,
		Gateway:     gateway,
		Brochures:   service.NewBrochureService(store),
		Webhook:     webhookDispatcher,
		VerifyToken: cfg.VerifyToken,
		Health:      []handlers.Pinger{listingSvc, store},
		Gatherer:    reg,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(":" + cfg.Port)
	}()
	log.Info().Str("port", cfg.Port).Str("base_path", cfg.APIBasePath).Msg("gateway listening")

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	webhookDispatcher.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	log.Info().Msg("gateway stopped")
}

// openListingStore picks MongoDB when MONGO_URI is set and PostgreSQL otherwise.
func openListingStore(ctx context.Context, cfg *config.AppConfig) (repository.ListingRepository, func(), error) {
	if cfg.UseMongo() {
		client, coll, err := database.NewMongo(cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(c)
		}
		if err := database.EnsureMongoIndexes(ctx, coll); err != nil {
			closeFn()
			return nil, nil, err
		}
		return mongorepo.NewListingMongo(coll), closeFn, nil
	}

	if cfg.Database.Host == "" {
		return nil, nil, errors.New("either MONGO_URI or DB_HOST must be set")
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return postgres.NewListingPostgres(db), func() { _ = db.Close() }, nil
}

// openBrochureStore picks MinIO when MINIO_ENDPOINT is set and a local directory otherwise.
func openBrochureStore(cfg *config.AppConfig) (storage.Storage, error) {
	if cfg.UseMinIO() {
		return storage.NewMinIO(cfg.MinIO)
	}
	return storage.NewLocal(cfg.BrochureDir)
}
