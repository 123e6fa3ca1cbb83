// Infiniscroll loads a search results page and keeps splicing the
// following result pages into it, the way the in-page script does while
// the reader scrolls.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"infiniscroll/config"
	"infiniscroll/fetcher"
	"infiniscroll/sites"
)

var (
	verbose    bool
	configPath string
	outputPath string
	pages      int
	useBrowser bool
	initConfig bool
	extraHosts []string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "infiniscroll [url]",
	Short: "Merge consecutive search result pages into one document",
	Long: `Fetches a search results page, then repeatedly loads the next results
page and splices its entries into the first one, separated by page markers.
Outbound result links are rewritten to open in new tabs. The merged HTML is
written to stdout or --output.

Example:
  infiniscroll "https://www.google.com/search?q=golang" --pages 3 -o golang.html`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/infiniscroll/config.toml)")
	flags.StringVarP(&outputPath, "output", "o", "", "write merged HTML here instead of stdout")
	flags.IntVarP(&pages, "pages", "n", 0, "load cycles to run (default from config)")
	flags.BoolVar(&useBrowser, "browser", false, "render pages in headless Chrome")
	flags.BoolVar(&initConfig, "init-config", false, "print the default config and exit")
	flags.StringSliceVar(&extraHosts, "host", nil, "treat HOST as a Google-style results site (repeatable)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if initConfig {
		fmt.Fprint(cmd.OutOrStdout(), config.DefaultTOML())
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("missing url")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("pages") {
		cfg.Crawl.MaxPages = pages
	}
	if useBrowser {
		cfg.Fetcher.UseBrowser = true
	}

	logger, err = newLogger(cfg.Log.Level, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, host := range extraHosts {
		p := sites.Google()
		p.Name = host
		p.Hosts = []string{host}
		sites.Register(p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	sum, err := crawl(ctx, crawlOptions{
		URL:     args[0],
		Config:  cfg,
		Fetcher: fetcher.New(fetcherOptions(cfg)),
		Logger:  logger,
		Out:     out,
	})
	if err != nil {
		return err
	}
	logger.Info("done",
		zap.Int("merged", sum.Merged),
		zap.Int("cycles", sum.Cycles),
		zap.Bool("exhausted", sum.Exhausted))
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func fetcherOptions(cfg *config.Config) fetcher.Options {
	return fetcher.Options{
		UserAgent:      cfg.Fetcher.UserAgent,
		TimeoutSeconds: cfg.Fetcher.TimeoutSeconds,
		ChromePath:     cfg.Fetcher.ChromePath,
		UseBrowser:     cfg.Fetcher.UseBrowser,
	}
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}
