package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/geopro/internal/aggregate"
	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/geocode"
	"github.com/woozymasta/geopro/internal/logger"
	"github.com/woozymasta/geopro/internal/render"
	"github.com/woozymasta/geopro/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	DataDir    string `short:"d" long:"data-dir" env:"DATA_DIR"       description:"Directory holding markers.json and shapes.json (overrides config)"`
	Addr       string `short:"a" long:"addr"     env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"     env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	store, err := annotation.Open(annotation.DirBackend{Dir: cfg.DataDir}, cfg.Icons)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to open annotation store")
	}

	renderer := render.New(geocode.New(cfg.Geocoder), cfg.Drawing)
	srvCtx, err := server.NewServerContext(cfg, store, aggregate.NewEngine(cfg.Icons), renderer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("data_dir", cfg.DataDir).
		Int("categories", len(cfg.Icons)).
		Msg("Web server started")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
