package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
)

func main() {
	configPath := flag.String("config", "", "config file (default ./tada.toml)")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	seedFile := flag.String("seed-file", "", "JSON file of todos to start with")
	noSeed := flag.Bool("no-seed", false, "start with an empty list")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *seedFile != "" {
		cfg.Store.SeedFile = *seedFile
	}
	if *noSeed {
		cfg.Store.SeedDefaults = false
		cfg.Store.SeedFile = ""
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Info("config loaded")
	}

	st, err := newStore(cfg.Store)
	if err != nil {
		logger.WithError(err).Fatal("seed store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg.Server, st, logger); err != nil {
		logger.WithError(err).Fatal("server failed")
	}
}

func newStore(cfg config.StoreConfig) (*store.Store, error) {
	st := store.New()
	switch {
	case cfg.SeedFile != "":
		todos, err := jsonstore.Load(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed file %s: %w", cfg.SeedFile, err)
		}
		if err := st.Seed(todos); err != nil {
			return nil, err
		}
	case cfg.SeedDefaults:
		if err := st.Seed(store.DefaultSeed()); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func serve(ctx context.Context, cfg config.ServerConfig, st *store.Store, logger *log.Logger) error {
	e := api.New(st, logger)

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{"addr": cfg.Addr, "todos": st.Len()}).Info("todo server starting")
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down todo server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
