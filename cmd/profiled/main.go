// Package main starts the profile web service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openprofiles/profiled/config"
	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/profiles/memory"
	"github.com/openprofiles/profiled/profiles/sqlite"
	"github.com/openprofiles/profiled/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	srv, err := web.NewServer(cfg, store, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (profiles.Store, error) {
	if cfg.DatabasePath == "" {
		return memory.NewStore(), nil
	}
	return sqlite.Open(cfg.DatabasePath)
}
