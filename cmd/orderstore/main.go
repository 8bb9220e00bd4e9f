package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"orderstore/internal/config"
	"orderstore/internal/driver"
	"orderstore/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (defaults are used when empty)")
	logLevel := flag.String("log-level", "", "Log level override: ['debug', 'info', 'warn', 'error']")
	pretty := flag.Bool("pretty", true, "Human readable console logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}

	// Flags win over the config file, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = *logLevel
		case "pretty":
			cfg.Pretty = *pretty
		}
	})

	level, err := cfg.Level()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// The store logs its events through the global logger set up above.
	st := store.New()
	if err := driver.Run(ctx, st, cfg, os.Stdout); err != nil {
		stop()
		log.Fatal().Err(err).Msg("driver failed")
	}
}
