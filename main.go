package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/hostfolio/backend/src/config"
	"github.com/username/hostfolio/backend/src/database"
	"github.com/username/hostfolio/backend/src/handlers"
	"github.com/username/hostfolio/backend/src/logger"
	"github.com/username/hostfolio/backend/src/processors"
	"github.com/username/hostfolio/backend/src/services"
	"github.com/username/hostfolio/backend/src/store"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath, config.Cfg.MigrationsPath)

	appCache := cache.New(config.Cfg.PropertyCacheTTL, config.Cfg.CacheCleanupInterval)

	propertyStore := store.NewSQLiteStore(database.DB)
	dedup := processors.NewTransactionDeduplicator()
	reconciler := processors.NewMetricsReconciler(dedup)
	propertyService := services.NewPropertyService(propertyStore, dedup, reconciler, appCache)

	propertyHandler := handlers.NewPropertyHandler(propertyService)
	uploadHandler := handlers.NewUploadHandler(propertyService)

	// 20 req/s sustained, bursts of 40. Single-tenant backend, one global bucket.
	limiter := rate.NewLimiter(rate.Limit(20), 40)

	allowedOrigins := append([]string{config.Cfg.FrontendBaseURL}, config.Cfg.AllowedOrigins...)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(handlers.CORSMiddleware(allowedOrigins))
	r.Use(handlers.RateLimitMiddleware(limiter))

	r.Route("/api", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", propertyHandler.ListProperties)
			r.Post("/", propertyHandler.CreateProperty)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", propertyHandler.GetProperty)
				r.Delete("/", propertyHandler.DeleteProperty)
				r.Put("/url", propertyHandler.UpdateURL)
				r.Post("/sources/csv", uploadHandler.UploadCSVForProperty)
				r.Post("/sources/{type}", propertyHandler.UpdateDataSource)
				r.Get("/metrics", propertyHandler.GetMetrics)
				r.Get("/bookings", propertyHandler.GetBookings)
			})
		})
		r.Post("/upload/csv", uploadHandler.UploadCSV)
	})

	server := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "port", config.Cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
	}
	if err := database.DB.Close(); err != nil {
		logger.L.Error("Failed to close database", "error", err)
	}
	logger.L.Info("Server stopped.")
}
