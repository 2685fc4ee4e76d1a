package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"carbonadvisor/config"
	"carbonadvisor/db"
	qhttp "carbonadvisor/http"
	"carbonadvisor/ml"
	"carbonadvisor/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Resolve(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := monitoring.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load schema and model; the process cannot serve without them
	artifacts, err := ml.LoadArtifacts(cfg.ML.SchemaPath, cfg.ML.ModelType, cfg.ML.ModelPath, cfg.ML.StrictSchema)
	if err != nil {
		logger.Fatal("failed to load artifacts", zap.Error(err))
	}
	if len(artifacts.Unresolved) > 0 {
		logger.Warn("schema columns will always be zero",
			zap.Strings("columns", artifacts.Unresolved))
	}
	logger.Info("artifacts loaded",
		zap.String("schema", cfg.ML.SchemaPath),
		zap.Int("columns", artifacts.Schema.Len()),
		zap.String("model_type", cfg.ML.ModelType),
		zap.String("model", cfg.ML.ModelPath))

	engine, err := ml.NewEngine(artifacts.Encoder, artifacts.Model,
		ml.WithLogger(logger.Named("engine")),
		ml.WithCacheSize(cfg.ML.CacheSize))
	if err != nil {
		logger.Fatal("failed to create engine", zap.Error(err))
	}

	// 3. Initialize database
	persist := cfg.Database.Path != ""
	if persist {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			logger.Fatal("failed to create database dir", zap.Error(err))
		}
		if err := db.InitDB(cfg.Database.Path); err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := monitoring.NewWebSocketHub(logger.Named("feed"))
	go feed.Run(ctx)

	if cfg.ML.WatchArtifacts {
		watcher, err := ml.NewArtifactWatcher(logger.Named("watcher"), cfg.ML.SchemaPath, cfg.ML.ModelPath)
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, &qhttp.API{
		Engine:  engine,
		Feed:    feed,
		Persist: persist,
		Logger:  logger.Named("http"),
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
