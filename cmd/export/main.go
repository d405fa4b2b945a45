package main

import (
	"os"

	"github.com/woozymasta/geopro/internal/annotation"
	"github.com/woozymasta/geopro/internal/config"
	"github.com/woozymasta/geopro/internal/logger"
	"github.com/woozymasta/geopro/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	DataDir    string `short:"d" long:"data-dir" env:"DATA_DIR"    description:"Directory holding markers.json and shapes.json (overrides config)"`
	Output     string `short:"o" long:"out"      description:"Output file path. Writes to stdout if empty"`
	Format     string `short:"f" long:"format"   description:"Output format" choice:"json" choice:"yaml" default:"json"`
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
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	store, err := annotation.Open(annotation.DirBackend{Dir: cfg.DataDir}, cfg.Icons)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to open annotation store")
	}

	fc := processor.BuildGeoJSON(store.Snapshot())

	if opts.Output == "" {
		if err := processor.Encode(os.Stdout, fc, opts.Format); err != nil {
			log.Fatal().Err(err).Msg("Failed to write export")
		}
		return
	}

	if err := processor.SaveExport(opts.Output, fc, opts.Format); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write export")
	}

	log.Info().
		Int("features", len(fc.Features)).
		Str("path", opts.Output).
		Str("format", opts.Format).
		Msg("Export written")
}
