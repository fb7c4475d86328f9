package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/CleanConnect/app/controllers"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/cache"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/database"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/engine"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/idempotency"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/jobqueue"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/report"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/router"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/s3export"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires storage, background workers and routes. The returned
// function releases what the app holds open.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	if cache.IsRedisEnabled() {
		cache.SetupCache()
	}

	repository.InitializeFactory(database.GetDB())

	var closers []func()
	opts := []engine.Option{engine.WithStatsCache(cache.NewStore())}

	keyPath := env.GetEnv("IDEMPOTENCY_DB_PATH", "data/idempotency.db")
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		log.Fatalf("Could not create idempotency directory: %v", err)
	}
	keys, err := idempotency.Open(keyPath)
	if err != nil {
		log.Fatalf("Could not open idempotency store %s: %v", keyPath, err)
	}
	closers = append(closers, func() { _ = keys.Close() })
	opts = append(opts, engine.WithIdempotency(keys))

	if exporter := setupReportExporter(); exporter != nil {
		opts = append(opts, engine.WithReportExporter(exporter))
	}

	var manager *jobqueue.Manager
	if cache.IsRedisEnabled() {
		manager = jobqueue.GetManager()
		opts = append(opts, engine.WithReconciler(manager.GetQueue()))
	} else {
		log.Println("CACHE_DRIVER is not redis, reconciliation jobs are disabled")
	}

	svc := engine.NewService(repository.GetGlobalRepositories(), opts...)
	controllers.InitializeEngine(svc)

	if manager != nil {
		manager.Start(svc, svc)
		closers = append([]func(){manager.Stop}, closers...)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Idempotency-Key, X-User-Email, X-User-Name, X-User-Photo",
	}))

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New(monitor.Config{Title: "CleanConnect Metrics"}))

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app)

	return app, func() {
		for _, c := range closers {
			c()
		}
	}
}

func setupReportExporter() *report.Exporter {
	cfg, err := s3export.LoadConfig()
	if err != nil {
		log.Printf("S3 export configuration invalid, report archiving disabled: %v", err)
		return nil
	}
	if !cfg.IsEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := s3export.NewClient(ctx, cfg)
	if err != nil {
		log.Printf("S3 export unavailable, report archiving disabled: %v", err)
		return nil
	}
	return report.NewExporter(client)
}

func findOpenAPISpec() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		path := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	log.Println("OpenAPI document not found, /docs/api/v1 is disabled")
	return ""
}
