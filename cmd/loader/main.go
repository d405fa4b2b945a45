package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/logger"
	"github.com/woozymasta/geopro/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"8"`
	MinZoom     int    `long:"min-zoom"              env:"MIN_ZOOM"    description:"Override basemap.min_zoom"`
	MaxZoom     int    `short:"z" long:"max-zoom"    env:"MAX_ZOOM"    description:"Override basemap.max_zoom"`
	Force       bool   `short:"f" long:"force"       description:"Force overwrite of existing files"`
	FastCheck   bool   `short:"F" long:"fast-check"  description:"Skip processing if cache exist"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	basemap := cfg.Basemap
	if opts.MinZoom > 0 {
		basemap.MinZoom = opts.MinZoom
	}
	if opts.MaxZoom > 0 {
		basemap.MaxZoom = opts.MaxZoom
	}
	if basemap.MinZoom > basemap.MaxZoom {
		log.Fatal().
			Int("min_zoom", basemap.MinZoom).
			Int("max_zoom", basemap.MaxZoom).
			Msg("Invalid zoom range")
	}

	if opts.FastCheck {
		if _, err := os.Stat(basemap.TileDir); err == nil {
			log.Info().
				Str("dir", basemap.TileDir).
				Msg("Tile directory exists, skipping (fast-check)")
			return
		}
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats := processor.ProcessTiles(ctx, client, basemap, opts.Concurrency, opts.Force)
	if stats.Failed > 0 {
		log.Warn().Int("failed", stats.Failed).Msg("Loader finished with failed tiles")
		return
	}

	log.Info().Msg("Loader finished successfully")
}
