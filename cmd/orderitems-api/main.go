package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-andiamo/modelmap/internal/api"
	"github.com/go-andiamo/modelmap/internal/config"
	"github.com/go-andiamo/modelmap/internal/database"
	"github.com/go-andiamo/modelmap/internal/logger"
	"github.com/go-andiamo/modelmap/internal/middleware"
	"github.com/go-andiamo/modelmap/internal/store"
	"github.com/go-andiamo/modelmap/orderitem"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting order items api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"db_driver", cfg.Database.Driver,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if cfg.Database.EnsureSchema {
		if err := database.EnsureSchema(ctx, db, cfg.Database.Driver, log); err != nil {
			log.Error("failed to initialize database schema", "error", err)
			os.Exit(1)
		}
	}

	dialect, err := store.DialectFor(cfg.Database.Driver)
	if err != nil {
		log.Error("unsupported database dialect", "error", err)
		os.Exit(1)
	}
	orderItemStore, err := store.NewOrderItemStore(db, dialect, log)
	if err != nil {
		log.Error("failed to create order item store", "error", err)
		os.Exit(1)
	}

	serializer, err := orderitem.NewSerializer(store.NewReferenceChecker(db, dialect))
	if err != nil {
		log.Error("failed to create order item serializer", "error", err)
		os.Exit(1)
	}
	if _, err := serializer.CompileJSONSchema(); err != nil {
		log.Error("order item representation schema is invalid", "error", err)
		os.Exit(1)
	}

	healthHandler := api.NewHealthHandler(db, log)
	orderItemHandler := api.NewOrderItemHandler(orderItemStore, serializer, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/order-items", orderItemHandler.Routes)
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}
