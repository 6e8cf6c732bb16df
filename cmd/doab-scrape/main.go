package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Sternrassler/doab-scraper/internal/app"
	"github.com/Sternrassler/doab-scraper/internal/config"
	"github.com/Sternrassler/doab-scraper/pkg/doab"
	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/Sternrassler/doab-scraper/pkg/scraper"
	"github.com/spf13/cobra"
)

type result struct {
	Count int         `json:"count"`
	Books []doab.Book `json:"books"`
}

type options struct {
	startYear int
	endYear   int
	limit     int
	batchSize int
	baseURL   string
	timeout   time.Duration
	logLevel  string
	pretty    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "doab-scrape <query>",
		Short: "Scrape DOAB for books on a subject published within a year range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, opts)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logCfg := cfg.LoggingSetup()
			logCfg.Output = cmd.ErrOrStderr()
			logging.Setup(logCfg)

			s, err := app.NewScraper(cfg, nil)
			if err != nil {
				return err
			}

			limit := cfg.Scrape.DefaultLimit
			if cmd.Flags().Changed("limit") {
				limit = opts.limit
			}

			books, err := s.Scrape(cmd.Context(), scraper.Request{
				Query:     args[0],
				StartYear: opts.startYear,
				EndYear:   opts.endYear,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result{Count: len(books), Books: books})
		},
	}

	cmd.Flags().IntVar(&opts.startYear, "start-year", 0, "first publication year (inclusive)")
	cmd.Flags().IntVar(&opts.endYear, "end-year", 0, "last publication year (inclusive)")
	cmd.Flags().IntVar(&opts.limit, "limit", scraper.DefaultLimit, "maximum number of books")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", doab.DefaultBatchSize, "upstream page size")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", doab.DefaultSearchURL, "DOAB search endpoint")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "per-attempt request timeout")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "human-readable logs")
	_ = cmd.MarkFlagRequired("start-year")
	_ = cmd.MarkFlagRequired("end-year")
	return cmd
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts options) {
	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		cfg.Upstream.BatchSize = opts.batchSize
	}
	if flags.Changed("base-url") {
		cfg.Upstream.BaseURL = opts.baseURL
	}
	if flags.Changed("timeout") {
		cfg.Upstream.Timeout = opts.timeout
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("pretty") {
		cfg.Logging.Pretty = opts.pretty
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
