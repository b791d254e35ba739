package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/aqi-predictor/internal/api/http"
	"github.com/i474232898/aqi-predictor/internal/config"
	"github.com/i474232898/aqi-predictor/internal/metrics"
	"github.com/i474232898/aqi-predictor/internal/model"
	"github.com/i474232898/aqi-predictor/internal/prediction"
	"github.com/i474232898/aqi-predictor/internal/prediction/providers"
	"github.com/i474232898/aqi-predictor/internal/scheduler"
	"github.com/i474232898/aqi-predictor/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	m := metrics.New()

	// A missing dataset or model degrades the affected endpoints only.
	dataset := store.Load(cfg.DatasetPath)
	handle := loadModel(cfg, httpClient)

	gateway := providers.NewOpenWeatherGateway(
		httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.UpstreamMaxRetries,
	).WithObserver(m)

	opts := []prediction.Option{prediction.WithRecorder(m)}
	if cfg.GeocoderAPIKey != "" {
		opts = append(opts, prediction.WithGeocoder(providers.NewGoogleGeocoder(cfg.GeocoderAPIKey, cfg.GeocoderCountry, cfg.HTTPTimeout)))
	}
	service := prediction.NewService(handle, gateway, opts...)

	if err := gateway.Ready(); err != nil {
		log.Printf("INFO: %v; /predict-city will fail until it is set", err)
	}

	// Optional upstream probe.
	if cfg.ProbeEnabled() {
		sched := scheduler.New(cfg.ProbeInterval, cfg.HTTPTimeout, *cfg.ProbeLat, *cfg.ProbeLng, service)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "aqi-predictor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Two upstream calls plus the model must fit in one response.
		WriteTimeout: 2*cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Dataset:        dataset,
		Service:        service,
		TopStatesLimit: cfg.TopStatesLimit,
	})

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
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

// loadModel prefers a remote model service when one is configured.
func loadModel(cfg *config.AppConfig, client *http.Client) *model.Handle {
	if cfg.ModelURL != "" {
		log.Printf("INFO: using remote model at %s", cfg.ModelURL)
		return model.NewHandle(model.NewRemote(cfg.ModelURL, client))
	}

	lm, err := model.LoadFile(cfg.ModelPath)
	if err != nil {
		log.Printf("ERROR: model not loaded: %v", err)
		return model.Unavailable(err)
	}
	return model.NewHandle(lm)
}
