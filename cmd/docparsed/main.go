// Package main provides the docparse HTTP server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/docparse-go/internal/chunker"
	"github.com/raphaelgruber/docparse-go/internal/config"
	"github.com/raphaelgruber/docparse-go/internal/metrics"
	"github.com/raphaelgruber/docparse-go/internal/server"
	"github.com/raphaelgruber/docparse-go/internal/service"
	"github.com/raphaelgruber/docparse-go/internal/textgroup"
	"github.com/raphaelgruber/docparse-go/internal/upstage"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg := config.Load()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(cfg, *configFile)
		if err != nil {
			slog.Error("failed to load config file", "path", *configFile, "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Info("starting docparsed",
		"port", cfg.ServerPort,
		"input_dir", cfg.InputDir,
		"output_dir", cfg.OutputDir,
		"concurrency", cfg.Concurrency)

	remote := upstage.NewClient(upstage.Config{
		Endpoint:     cfg.APIURL,
		APIKey:       cfg.APIKey,
		PollInterval: cfg.PollInterval,
	}, logger)

	collector := metrics.NewCollector()
	jobs := service.NewJobManager(logger)
	pipeline := service.NewPipeline(remote, jobs, collector, logger)

	ch := chunker.New(nil, chunker.Config{
		SizeThreshold: cfg.SizeThreshold(),
		PagesPerChunk: cfg.PagesPerChunk,
		StagingDir:    cfg.ChunkDir,
	}, logger)

	batch, err := service.NewBatch(service.BatchConfig{
		InputDir:    cfg.InputDir,
		OutputDir:   cfg.OutputDir,
		Concurrency: cfg.Concurrency,
		PollTimeout: cfg.PollTimeout,
	}, ch, pipeline, jobs, collector, logger)
	if err != nil {
		logger.Error("failed to create batch scheduler", "error", err)
		os.Exit(1)
	}
	defer batch.Release()

	srv := server.New(batch, jobs, textgroup.NewConverter(logger), collector, cfg.OutputDir, cfg.TextDir, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, ":"+cfg.ServerPort); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
