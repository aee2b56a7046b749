package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/proofgate/proofgate/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	listenAddr := flag.String("listen", "", "HTTP listen address (default: 127.0.0.1:8480)")
	storePath := flag.String("store", "", "SQLite store path, or 'memory'")
	keyPath := flag.String("vk", "", "Groth16 verifying key path")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	var level slog.Level
	switch strings.ToLower(*logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := buildConfig(*configPath, *listenAddr, *storePath, *keyPath)
	if err != nil {
		logger.Error("failed to build configuration", "error", err)
		os.Exit(1)
	}

	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	daemon, err := NewDaemon(cfg, logger)
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	logger.Info("starting proofgate-server",
		"listen", cfg.Server.ListenAddr,
		"store", cfg.Store.Path,
		"verifying_key", cfg.Keys.VerifyingKey,
		"key_watch", cfg.Keys.Watch,
		"audit_publishing", cfg.Audit.Enabled,
	)

	if err := daemon.Run(ctx); err != nil && err != context.Canceled && err != http.ErrServerClosed {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}

	logger.Info("daemon stopped gracefully")
}

// buildConfig creates a ServerConfig from file and/or flags.
// Flags override file settings.
func buildConfig(configPath, listenAddr, storePath, keyPath string) (*config.ServerConfig, error) {
	var cfg *config.ServerConfig

	if configPath != "" {
		fileCfg, err := config.LoadServerConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = fileCfg
	} else {
		def := config.DefaultServerConfig()
		cfg = &def
	}

	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	if storePath != "" {
		if storePath == "memory" {
			cfg.Store.Path = storePath
		} else {
			cfg.Store.Path = config.ExpandPath(storePath)
		}
	}
	if keyPath != "" {
		cfg.Keys.VerifyingKey = config.ExpandPath(keyPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
