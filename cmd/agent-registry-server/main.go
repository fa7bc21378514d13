package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	internalhttp "github.com/EternisAI/agent-registry/internal/api/http"
	"github.com/EternisAI/agent-registry/internal/app"
	grpcserver "github.com/EternisAI/agent-registry/internal/grpc/server"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/tracing"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Agent Registry Server", "version", AppVersion)

	ctx := context.Background()

	tp, err := tracing.NewProvider(ctx, config.Tracing)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	j, closeJournal, err := app.OpenJournal(ctx, config.Ledger, config.DB)
	if err != nil {
		slog.Error("Failed to open journal", "error", err)
		os.Exit(1)
	}
	defer closeJournal()

	registries, err := app.New(ctx, j, config.Ledger, config.Registry, ledger.WithTracer(tp.Tracer()))
	if err != nil {
		slog.Error("Failed to start registries", "error", err)
		closeJournal()
		os.Exit(1)
	}

	grpcSrv := grpcserver.NewServer(config.Grpc.Port)
	tracker := grpcserver.NewStatusTracker(grpcSrv.Health())
	for _, reg := range registries.Ownership.All() {
		tracker.Track(grpcserver.KindOwnership, reg.Address(), !reg.Paused())
	}
	for _, reg := range registries.Usage.All() {
		tracker.Track(grpcserver.KindUsage, reg.Address(), true)
	}
	tracker.Attach(registries.Ledger)

	services := &internalhttp.Services{
		App:    registries,
		JWT:    config.JWT,
		Config: config.Http,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 2)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go func() {
		if err := grpcSrv.Start(); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down servers...")

	var wg sync.WaitGroup
	shutdownTimeout := 10 * time.Second

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := grpcSrv.StopWithTimeout(shutdownTimeout); err != nil {
			slog.Error("gRPC server shutdown error", "error", err)
		}
	}()

	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}
	slog.Info("Shutdown complete", "seq", registries.Ledger.Seq())
}
