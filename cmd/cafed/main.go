package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cafe/cafe/internal/cafe"
	"github.com/cafe/cafe/internal/config"
	"github.com/cafe/cafe/internal/db"
	"github.com/cafe/cafe/internal/events"
	grpcserver "github.com/cafe/cafe/internal/grpc"
	"github.com/cafe/cafe/internal/metrics"
	"github.com/cafe/cafe/internal/repo"
	"github.com/cafe/cafe/internal/rest"
	"github.com/cafe/cafe/internal/web"
	"github.com/cafe/cafe/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Cafe service starting", zap.String("context_path", cfg.ContextPath))

	// Connect to database
	log.Info("Connecting to database...", zap.String("driver", cfg.DBDriver))
	database, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	coffeeRepo := repo.NewCoffeeRepository(database, log)
	sessionRepo := repo.NewSessionRepository(database, log)

	// Events are optional; without RabbitMQ the catalog still works.
	var (
		publisher rest.EventPublisher
		broker    grpcserver.Broker
	)
	if cfg.RabbitMQURL != "" {
		log.Info("Connecting to RabbitMQ")
		p, err := events.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer p.Close()
		publisher, broker = p, p
	} else {
		log.Warn("RABBITMQ_URL not set, coffee events disabled")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	metrics.RegisterCatalogSize(registry, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		total, err := coffeeRepo.CountCoffees(ctx)
		if err != nil {
			return 0
		}
		return float64(total)
	})

	healthServer := grpcserver.NewHealthServer(database, broker, log)

	// HTTP: coffee page, catalog resource, health and metrics
	httpMux := http.NewServeMux()

	resource := rest.NewResource(coffeeRepo, publisher, m, log)
	resource.Register(httpMux, cfg.ContextPath)

	catalogClient := &http.Client{Timeout: cfg.CatalogTimeout}
	page := web.NewHandler(cafe.Config{
		Endpoint: cafe.Endpoint{Scheme: cfg.CatalogScheme, Host: cfg.CatalogHost, Port: cfg.CatalogPort},
		Dial:     web.CatalogDialer(catalogClient, m, log),
	}, cfg.ContextPath, sessionRepo, log)
	page.Register(httpMux)

	httpMux.Handle("/healthz", healthServer)
	httpMux.Handle("/metrics", metrics.Handler(registry))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// gRPC: health checks and reflection for grpcurl/grpcui
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)),
	)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()

	// Let in-flight coffee events reach the broker before it is closed.
	resource.Wait()

	log.Info("Server stopped")
}
