// Package main runs browserd, an HTTP service that drives browser
// instances through opaque session ids.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/entrhq/browserd/pkg/api"
	"github.com/entrhq/browserd/pkg/browser"
	"github.com/entrhq/browserd/pkg/config"
)

const shutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := run(cfg, log); err != nil {
		log.Fatalf("browserd failed: %v", err)
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	driver, err := browser.NewPlaywrightDriver()
	if err != nil {
		return err
	}

	resolver := browser.NewResolver(cfg.DefaultHeadless)
	manager := browser.NewManager(driver, resolver, browser.Options{
		MaxSessions:   cfg.MaxSessions,
		IdleTimeout:   cfg.IdleTimeout.Std(),
		SweepInterval: cfg.SweepInterval.Std(),
		LockWait:      cfg.LockWait.Std(),
		ActionTimeout: cfg.ActionTimeout.Std(),
		NavTimeout:    cfg.NavTimeout.Std(),
	}, log)
	dispatcher := browser.NewDispatcher(manager, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.RunSweeper(ctx)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(manager, dispatcher, resolver, log).Routes(),
	}
	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        cfg.ListenAddr,
			"environment": resolver.Environment(),
		}).Info("browserd listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)
	manager.Shutdown(shutdownCtx)
	if err := driver.Close(); err != nil {
		log.Warnf("failed to stop browser driver: %v", err)
	}
	return nil
}
