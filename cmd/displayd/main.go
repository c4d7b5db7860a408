// Command displayd is a reconnect-stable X11/RandR layout daemon: it
// remembers the layout you set up for each combination of connected
// monitors and reapplies it automatically the next time that combination
// reappears (SPEC_FULL §1).
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/1broseidon/displayd/internal/config"
	"github.com/1broseidon/displayd/internal/daemon"
	"github.com/1broseidon/displayd/internal/display"
	"github.com/1broseidon/displayd/internal/ipc"
	"github.com/1broseidon/displayd/internal/mcp"
	"github.com/1broseidon/displayd/internal/platform"
	"github.com/1broseidon/displayd/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemon()
	case "tui":
		os.Exit(runTUI())
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: displayd <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon      Start the displayd daemon (foreground)")
	fmt.Fprintln(w, "  tui         Open the read-only layout/database inspector")
	fmt.Fprintln(w, "  mcp serve   Start MCP server (stdio transport)")
}

func runTUI() int {
	if err := tui.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "Usage: displayd mcp serve")
		return 2
	}

	server := mcp.NewServer()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db := loadDatabase(cfg, logger)

	backend, err := platform.NewX11BackendFromDisplay(logger)
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		os.Exit(1)
	}
	defer backend.Cleanup()

	manager := display.NewManager(db, backend, display.ManagerConfig{
		ReentrancyLimit: cfg.ReentrancyLimit,
		Logger:          logger,
	})

	shutdown := make(chan struct{})
	manager.OnFatal = func(err error) {
		logger.Error("fatal manager error, shutting down", "error", err)
		persistDatabase(cfg, db, logger)
		close(shutdown)
	}

	if err := manager.Start(); err != nil {
		logger.Error("failed to attach backend", "error", err)
		os.Exit(1)
	}
	logger.Info("displayd started")

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: time.Duration(cfg.ReconcileSec) * time.Second,
		Logger:   logger,
	}, backend, manager)

	reconcilerCtx, reconcilerCancel := context.WithCancel(context.Background())
	defer reconcilerCancel()
	go reconciler.Run(reconcilerCtx)

	server, err := ipc.NewServer(manager, backend, reconciler, logger)
	if err != nil {
		logger.Error("failed to create control socket", "error", err)
		os.Exit(1)
	}
	if err := server.Start(); err != nil {
		logger.Error("failed to start control socket", "error", err)
		os.Exit(1)
	}
	defer server.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
		case <-shutdown:
		}
		reconcilerCancel()
		server.Stop()
		persistDatabase(cfg, db, logger)
		backend.Cleanup()
		os.Exit(0)
	}()

	logger.Info("entering event loop")
	backend.EventLoop()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func loadDatabase(cfg *config.Config, logger *slog.Logger) *display.Database {
	data, err := os.ReadFile(cfg.DatabasePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read database file, starting empty", "path", cfg.DatabasePath, "error", err)
		}
		return display.NewDatabase()
	}

	db, err := display.LoadDatabase(data)
	if err != nil {
		logger.Warn("failed to decode database file, starting empty", "path", cfg.DatabasePath, "error", err)
		return display.NewDatabase()
	}
	return db
}

func persistDatabase(cfg *config.Config, db *display.Database, logger *slog.Logger) {
	data, err := db.Store()
	if err != nil {
		logger.Error("failed to serialize database", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0700); err != nil {
		logger.Error("failed to create database directory", "error", err)
		return
	}
	if err := os.WriteFile(cfg.DatabasePath, data, 0600); err != nil {
		logger.Error("failed to write database file", "path", cfg.DatabasePath, "error", err)
		return
	}
	logger.Info("database persisted", "path", cfg.DatabasePath)
}
