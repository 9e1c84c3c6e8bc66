package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"propertybot/internal/classify"
	"propertybot/internal/config"
	handlers "propertybot/internal/http/handler"
	"propertybot/internal/http/middleware"
	"propertybot/internal/logger"
	"propertybot/internal/metrics"
	"propertybot/internal/otel"
	"propertybot/internal/rules"
	"propertybot/internal/source"
	"propertybot/internal/source/chat"
	"propertybot/internal/source/chat/waha"
)

// The chat bot receives the bridge's message webhook on POST /events, filters
// group messages with the shared classifier and posts accepted ones to the
// gateway at LOCAL_BACKEND_ENDPOINT.
func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Pretty, cfg.Location())
	log := logger.Component("main")

	if cfg.Forward.Endpoint == "" {
		log.Fatal().Msg("LOCAL_BACKEND_ENDPOINT is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "propertybot-chatbot")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	grammar := rules.Default()
	if cfg.RulesPath != "" {
		if grammar, err = rules.Load(cfg.RulesPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("failed to load rules")
		}
	}
	classifier := classify.New(grammar.RejectPhrases)

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

	bridge := waha.NewClient(cfg.Chat.BridgeURL, cfg.Chat.SessionID, cfg.Chat.BridgeAPIKey)
	dispatcher := source.NewDispatcher("chat", source.NewHTTPForwarder(cfg.Forward.Endpoint, cfg.Forward.Timeout), cfg.Forward, pipeline)
	adapter := chat.NewAdapter(classifier, bridge, bridge, dispatcher, cfg.Forward.Timeout*3, pipeline)

	watchdogCtx, stopWatchdog := context.WithCancel(ctx)
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		chat.NewWatchdog(bridge, cfg.Chat.WatchdogInterval).Run(watchdogCtx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      "propertybot-chatbot",
		ErrorHandler: handlers.ErrorHandler(),
	})
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(httpMetrics.Handler())

	handlers.RegisterChatRoutes(app, handlers.ChatRoutes{
		Events:   adapter,
		Session:  cfg.Chat.SessionID,
		HMACKey:  cfg.Chat.WebhookHMACKey,
		Gatherer: reg,
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(":" + cfg.Chat.Port)
	}()
	log.Info().
		Str("port", cfg.Chat.Port).
		Str("session", cfg.Chat.SessionID).
		Str("bridge", cfg.Chat.BridgeURL).
		Msg("chat bot listening")

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stopWatchdog()
	<-watchdogDone
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	adapter.Wait()
	dispatcher.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	log.Info().Msg("chat bot stopped")
}
