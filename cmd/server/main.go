package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/videold-go/api"
	"github.com/yourusername/videold-go/api/handlers"
	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/bootstrap"
	"github.com/yourusername/videold-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting VideoLD server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("backend", config.Backend.BaseURL),
		zap.Bool("push_progress", config.Progress.Enabled))

	// Transfers started over HTTP run until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := bootstrap.Build(ctx, config, log, bootstrap.Options{})
	if err != nil {
		log.Fatal("Failed to initialize runtime", zap.Error(err))
	}
	defer rt.Close()

	var channel handlers.ConnectionStatus
	if rt.Channel != nil {
		channel = rt.Channel
	}

	router := api.SetupRouter(api.RouterConfig{
		BaseCtx:        ctx,
		Orchestrator:   rt.Orchestrator,
		Channel:        channel,
		AllowedOrigins: config.Server.AllowedOrigins,
		Logger:         log,
		EventLogger:    rt.EventLogger,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Abort in-flight transfers; partial files are discarded
	cancel()
	rt.Orchestrator.Wait()

	log.Info("Server exited")
}
