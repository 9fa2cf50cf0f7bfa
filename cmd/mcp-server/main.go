package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/paperpod/internal/config"
	"github.com/apresai/paperpod/internal/mcpserver"
	"github.com/apresai/paperpod/internal/observability"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Config file (default "+config.DefaultPath+" when present)")
	addr := flag.String("http", os.Getenv("PAPERPOD_MCP_ADDR"), "Serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// stdout carries the protocol, so everything else goes to stderr
		os.Stderr.WriteString("paperpod-mcp: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := observability.InitLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		os.Stderr.WriteString("paperpod-mcp: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Info("paperpod MCP server starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cfg.LoadSecrets(ctx, logger); err != nil {
		logger.Warn("secrets manager unavailable", "error", err)
	}

	shutdown, err := observability.InitTracer(ctx, "paperpod-mcp", version)
	if err != nil {
		logger.Warn("failed to init tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	srv := mcpserver.New(ctx, cfg, version, logger)
	if *addr != "" {
		err = srv.ServeHTTP(ctx, *addr)
	} else {
		err = srv.ServeStdio(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		cancel()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
