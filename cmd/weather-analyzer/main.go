package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/advice"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis/providers"
	httpapi "github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/api/http"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/config"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/forecast"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/scheduler"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound POWER calls.
	httpClient := &http.Client{
		Timeout: cfg.PowerTimeout,
	}

	source := providers.NewPowerProvider(httpClient, cfg.PowerBaseURL)

	// Persistent model cache; the service still works without it.
	var modelStore *store.ModelStore
	if cfg.ModelCachePath != "" {
		modelStore, err = store.Open(cfg.ModelCachePath)
		if err != nil {
			log.Printf("model store disabled: %v", err)
		} else {
			defer modelStore.Close()
		}
	}

	modelCfg := forecast.DefaultConfig()
	modelCfg.TrainTimeout = cfg.TrainTimeout

	modelCache := forecast.NewCache(source, modelStore, modelCfg, forecast.CacheOptions{
		TTL:            cfg.ModelCacheTTL,
		GridResolution: cfg.GridResolution,
		StartYear:      cfg.StartYear,
		EndYear:        cfg.EndYear,
		MinTrainYears:  cfg.MinTrainYears,
	})

	// Model-assisted guidance; without an API key the advisor serves
	// its fallback response.
	advisor := advice.NewAdvisor(advice.NewOpenRouterCompleter(cfg.OpenRouterAPIKey, cfg.GenAIModel))

	service := analysis.NewService(source, modelCache, advisor, analysis.Options{
		StartYear:           cfg.StartYear,
		EndYear:             cfg.EndYear,
		MinStatYears:        cfg.MinStatYears,
		MinTrainYears:       cfg.MinTrainYears,
		DefaultForecastDays: cfg.DefaultForecastDays,
		MaxForecastDays:     cfg.MaxForecastDays,
	})

	// Scheduler that periodically sweeps expired trained models.
	sched := scheduler.New(modelCache, cfg.SweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-analyzer",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response.
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
