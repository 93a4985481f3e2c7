package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/simbridge/simbridge/cmd/simbridge/commands"
)

// Build metadata, overridden through ldflags by the release scripts.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(logLevel())

	// An interrupt cancels the context so an active session can finish
	// its frame and finalize the recording.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, version, commit, buildDate); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		os.Exit(1)
	}
}

func logLevel() zerolog.Level {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		if level, err := zerolog.ParseLevel(env); err == nil {
			return level
		}
		log.Warn().Str("LOG_LEVEL", env).Msg("Unknown log level, using info")
	}
	return zerolog.InfoLevel
}
