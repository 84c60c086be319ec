package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"questionpooler"
)

var CLI struct {
	Config   string `short:"c" default:"questionpooler.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Content  string `help:"Directory holding appearance.txt, interests.txt and options/ (overrides config)"`
	Players  int    `short:"p" help:"Players per session (overrides config)"`
	NoDB     bool   `name:"no-db" help:"Run without the session history database"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("webserver"),
		kong.Description("Serve per-player question pools over HTTP"),
		kong.UsageOnError(),
	)

	cfg, err := questionpooler.LoadConfig(CLI.Config)
	ctx.FatalIfErrorf(err)

	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Content != "" {
		cfg.Content.Dir = CLI.Content
	}
	if CLI.Players > 0 {
		cfg.Content.Players = CLI.Players
	}
	ctx.FatalIfErrorf(cfg.Validate())

	addr := cfg.ServerAddress()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           questionpooler.ParseLogLevel(cfg.Server.LogLevel),
	})
	questionpooler.SetLogger(logger)

	// Fail fast if the content directory cannot build a pool
	content := os.DirFS(cfg.Content.Dir)
	if _, err := questionpooler.NewPoolManager(questionpooler.NewLoader(content, logger), 1); err != nil {
		logger.Fatal("Failed to load question content", "dir", cfg.Content.Dir, "err", err)
	}

	var history *questionpooler.HistoryDB
	if !CLI.NoDB {
		history, err = questionpooler.OpenHistoryDB(cfg.History.Database, quartz.NewReal())
		if err != nil {
			logger.Fatal("Failed to open database", "err", err)
		}
		defer history.Close()

		if err := history.CreateTables(); err != nil {
			logger.Fatal("Failed to create tables", "err", err)
		}
	}

	server := NewServer(cfg, content, history, logger, quartz.NewReal())
	defer server.Close()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting server", "addr", addr, "content", cfg.Content.Dir, "players", cfg.Content.Players)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "err", err)
	}
}
