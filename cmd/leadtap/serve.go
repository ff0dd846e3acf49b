package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/pipeline"
	"github.com/rendis/leadtap/internal/server"
)

type ServeCmd struct {
	Port string `help:"Listen port. Defaults to PORT."`
	DB   string `help:"Database path. Defaults to LEADTAP_DB."`
	Near string `help:"Bias every search towards this place."`
}

func (c *ServeCmd) Run(cfg *config.Config) error {
	port, dbPath := cfg.Port, cfg.DBPath
	if c.Port != "" {
		port = c.Port
	}
	if c.DB != "" {
		dbPath = c.DB
	}

	logger := cfg.NewLogger(os.Stderr, "serve")

	store, err := storage.NewStore(dbPath, cfg.PhoneRegion)
	if err != nil {
		return err
	}
	defer store.Close()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p, err := pipeline.Open(startCtx, cfg, pipeline.Options{Near: c.Near, Logger: logger})
	if err != nil {
		return err
	}
	defer p.Close()

	e := server.New(server.Deps{
		Runner:    p,
		Store:     store,
		RateLimit: cfg.RateLimitCollect,
		Logger:    logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + port)
	}()
	logger.Info("listening", "port", port, "db", dbPath, "analyzer", cfg.Analyzer,
		"rate_limit", cfg.RateLimitCollect.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	return nil
}
