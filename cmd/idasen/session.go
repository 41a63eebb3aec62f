package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxime1992/idasen-controller/internal/desk"
	"github.com/maxime1992/idasen-controller/pkg/config"
)

// sessionOptions maps the effective config onto desk session options.
func sessionOptions(cfg *config.Config) *desk.SessionOptions {
	return &desk.SessionOptions{
		Address:        cfg.MacAddress,
		ConnectTimeout: cfg.ConnectionTimeout,
		ScanTimeout:    cfg.ScanTimeout,
		CachePath:      cfg.CacheFile,
	}
}

// deskOptions maps the effective config onto desk behavior options.
func deskOptions(cfg *config.Config) *desk.Options {
	opts := desk.DefaultOptions()
	opts.HeightToleranceMM = cfg.HeightTolerance
	opts.MovementTimeout = cfg.MovementTimeout
	return opts
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM. The desk
// session's deferred disconnect still runs, so an interrupted run releases
// the connection like any other.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nCtrl+C pressed, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
