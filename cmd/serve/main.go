package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"termdeposit/config"
	thttp "termdeposit/http"
	"termdeposit/logging"
	"termdeposit/ml"
	"termdeposit/predictor"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Host IP to bind to.")
	port := flag.Int("port", 8000, "Port to listen on.")
	workers := flag.Int("workers", 4, "Maximum number of requests handled at once.")
	reload := flag.Bool("reload", false, "Reload model artifacts when they change on disk.")
	env := flag.String("env", "", "Runtime environment: dev, staging or production.")
	flag.Parse()

	// Only flags given on the command line override the other sources.
	overrides := config.Overrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			overrides["host"] = *host
		case "port":
			overrides["port"] = *port
		case "workers":
			overrides["workers"] = *workers
		case "reload":
			overrides["reload"] = *reload
		case "env":
			overrides["env"] = *env
		}
	})

	// 1. Load settings
	settings, err := config.Load(overrides)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	// 2. Logging
	logger, err := logging.Setup(settings.ConfigDir, settings.RootDir, settings.Env)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Sync()

	if err := run(settings, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Exiting")
}

func run(settings config.Settings, logger *zap.Logger) error {
	// 3. Load model state; a missing or broken pipeline is fatal.
	store := ml.NewArtifactStore(settings.ArtifactsDir)
	svc, err := predictor.New(store, settings.PredictCacheSize, logger)
	if err != nil {
		return fmt.Errorf("load model state from %s: %w", store.Dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.Reload && !settings.IsDev() {
		logger.Warn("Ignoring reload outside the dev environment", zap.String("env", settings.Env))
	}
	if settings.WatchArtifacts() {
		go func() {
			if err := svc.Watch(ctx); err != nil {
				logger.Error("Artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// 4. Start HTTP server
	server := thttp.NewServer(thttp.ConfigFromSettings(settings), svc, logger, reg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	logger.Info("Serving predictions",
		zap.String("env", settings.Env),
		zap.String("addr", server.Addr()),
		zap.Int("workers", settings.Workers),
		zap.Bool("reload", settings.WatchArtifacts()))

	// 5. Handle graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	if err := server.Stop(); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
	return nil
}
