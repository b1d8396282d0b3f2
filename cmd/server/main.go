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

	"github.com/me/docbatch/internal/config"
	"github.com/me/docbatch/internal/logging"
	"github.com/me/docbatch/internal/office"
	"github.com/me/docbatch/internal/queue"
	"github.com/me/docbatch/internal/server"
	"github.com/me/docbatch/internal/store"
)

func main() {
	cfg := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to YAML config file")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Audit database path (\":memory:\" keeps no history across restarts)")
	flag.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Concurrent operation limit")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Open the audit store and run migrations.
	audit, err := store.NewAuditStore(cfg.DBPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open audit database: %v\n", err)
		os.Exit(1)
	}
	defer audit.Close()

	if err := audit.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate audit database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("audit database ready", "path", cfg.DBPath)

	// One in-memory document per family, registered under its type name.
	spreadsheet := office.NewSpreadsheet(logger)
	presentation := office.NewPresentation(logger)
	textdoc := office.NewTextDocument(logger)

	reg := queue.NewRegistry(logger)
	reg.Register("spreadsheet", spreadsheet)
	reg.Register("presentation", presentation)
	reg.Register("textdoc", textdoc)

	q := queue.New(queue.Config{MaxConcurrent: cfg.MaxConcurrent}, reg, logger,
		queue.WithAudit(audit))

	srv := server.New(cfg, q, logger,
		server.WithAuditStore(audit),
		server.WithTarget("spreadsheet", spreadsheet),
		server.WithTarget("presentation", presentation),
	)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "max_concurrent", cfg.MaxConcurrent)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop the queue before the HTTP server so no handler races the sweep.
	if err := q.Shutdown(shutdownCtx); err != nil {
		logger.Error("queue shutdown error", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
