// Package main implements a stand-in build binary. It exposes the build's
// frame protocol over a websocket endpoint with a deterministic physics
// stand-in behind it, for development and testing without a real simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simbridge/simbridge/pkg/mockbuild"
	"github.com/simbridge/simbridge/pkg/telemetry"
)

func main() {
	var (
		address  = flag.String("address", "127.0.0.1:1071", "listen address")
		path     = flag.String("path", "/frames", "websocket endpoint path")
		logLevel = flag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	)
	flag.Parse()

	log, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  *logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv := mockbuild.NewServer(mockbuild.ServerConfig{
		Address: *address,
		Path:    *path,
	}, log)
	if err := srv.Start(); err != nil {
		log.WithError(err).Error("failed to start")
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}
