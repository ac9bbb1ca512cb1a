package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cssbruno/waba-sandbox/internal/config"
	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/eventbus"
	"github.com/cssbruno/waba-sandbox/internal/limits"
	"github.com/cssbruno/waba-sandbox/internal/marketing"
	"github.com/cssbruno/waba-sandbox/internal/phone"
	"github.com/cssbruno/waba-sandbox/internal/policy"
	"github.com/cssbruno/waba-sandbox/internal/service"
	"github.com/cssbruno/waba-sandbox/internal/template"
	"github.com/cssbruno/waba-sandbox/internal/tracing"
	"github.com/cssbruno/waba-sandbox/internal/webhook"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("waba-sandbox %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting waba-sandbox")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	runtime := config.NewRuntime(cfg)
	bus := eventbus.New(logger)

	policies := policy.NewStore()
	marketingStore := marketing.NewStore(runtime)
	tracker := limits.NewTracker()
	phones := phone.NewStore()
	templates := template.NewStore()
	resolver := webhook.NewResolver(phones, runtime)
	forwarder := webhook.NewForwarder(bus, logger)

	sandbox := service.NewSandbox(policies, marketingStore, tracker, phones, templates, resolver, forwarder, bus, logger)

	server := NewServer(cfg, &ServerDeps{
		Sandbox:   sandbox,
		Policies:  policies,
		Marketing: marketingStore,
		Limits:    tracker,
		Phones:    phones,
		Templates: templates,
		Runtime:   runtime,
		Bus:       bus,
	}, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
