package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mars-scraper/config"
	"mars-scraper/fetcher"
	"mars-scraper/logger"
	"mars-scraper/parser"
	"mars-scraper/scraper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mars-scraper",
	Short: "mars-scraper collects the latest Mars news, images, weather, facts and hemispheres.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Log at info until the config says otherwise.
		logger.Init("info", true)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from file or returns defaults
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Log.Warn().Str("path", path).Msg("Config file not found. Using default configuration.")
		cfg = config.Defaults()
		cfg.ApplyEnv()
		err = cfg.Validate()
	}
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

// newScraper wires the browser, the direct fetcher and the default extractors
func newScraper(cfg *config.Config) (*scraper.Scraper, error) {
	opener, err := fetcher.NewOpener(cfg.Browser)
	if err != nil {
		return nil, err
	}
	return scraper.New(opener, fetcher.NewCollyFetcher(cfg.Fetch.UserAgent), parser.Defaults(cfg))
}
