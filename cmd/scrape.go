package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/mlinder314/runscrape/internal/browser"
	"github.com/mlinder314/runscrape/internal/config"
	"github.com/mlinder314/runscrape/internal/display"
	"github.com/mlinder314/runscrape/internal/extractor"
	"github.com/mlinder314/runscrape/internal/tracks"
	"github.com/mlinder314/runscrape/internal/ui"
	"github.com/mlinder314/runscrape/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// target
	flagURL    string
	flagOutput string
	flagFormat string

	// browser
	flagDriver        string
	flagHeadful       bool
	flagChromePath    string
	flagTimeout       time.Duration
	flagPageLoadDelay time.Duration

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string

	// runtime
	flagProgress bool
	flagDryRun   bool
	flagLogJSON  bool
)

func init() {
	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Append every row of the results table to the output file. Uses the defaults from the selected config, overwritten by CLI flags",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}

	// target
	scrapeCmd.Flags().StringVar(&flagURL, "url", "", "results listing URL (default "+extractor.DefaultURL+")")
	scrapeCmd.Flags().StringVar(&flagOutput, "output", "", "file records are appended to (default tracks.csv)")
	scrapeCmd.Flags().StringVar(&flagFormat, "format", "", "record format: raw (unescaped) or csv (quoted)")

	// browser
	scrapeCmd.Flags().StringVar(&flagDriver, "driver", "", "page session: chrome or http")
	scrapeCmd.Flags().BoolVar(&flagHeadful, "headful", false, "run Chrome with a window on a virtual X display")
	scrapeCmd.Flags().StringVar(&flagChromePath, "chrome-path", "", "Chrome executable")
	scrapeCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "page load timeout (e.g. 60s)")
	scrapeCmd.Flags().DurationVar(&flagPageLoadDelay, "page-load-delay", 0, "extra wait after the page is ready, for scripts that fill the table")

	// headers/auth
	scrapeCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	scrapeCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	scrapeCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	// runtime
	scrapeCmd.Flags().BoolVar(&flagProgress, "progress", false, "show a progress bar while rows are appended")
	scrapeCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print records to stdout instead of appending them")
	scrapeCmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "log JSON lines instead of console text")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:  flagIgnoreConfig,
		Debug:         flagDebug,
		URL:           flagURL,
		Output:        flagOutput,
		Format:        flagFormat,
		Driver:        flagDriver,
		Headful:       flagHeadful,
		ChromePath:    flagChromePath,
		Timeout:       flagTimeout,
		PageLoadDelay: flagPageLoadDelay,
		Cookie:        flagCookie,
		CookieFile:    flagCookieFile,
		UserAgent:     flagUserAgent,
		Progress:      flagProgress,
	})
	if err != nil {
		return err
	}
	if flagLogJSON {
		cfg.LogJSON = true
	}

	// Records own stdout in a dry run.
	status := cmd.OutOrStdout()
	if flagDryRun {
		status = cmd.ErrOrStderr()
	}

	log := ui.NewLogger(status, ui.LogOptions{Debug: cfg.Debug, JSON: cfg.LogJSON}).
		With().Str("run_id", uuid.NewString()).Logger()

	log.Debug().Str("config", usedPath).Msg("config loaded")
	if cfg.Debug {
		cfg.Print(status)
	}

	format, err := tracks.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	ctx, cancel := util.InterruptContext(cmd.Context())
	defer cancel()

	stats := ui.Stats{URL: cfg.URL, Output: cfg.Output, Start: time.Now()}

	log.Info().Bool("headless", cfg.Headless).Msg("opening display")
	surface, err := display.Start(ctx, display.Options{
		Headless: cfg.Headless || cfg.Driver == config.DriverHTTP,
		Width:    cfg.DisplayWidth,
		Height:   cfg.DisplayHeight,
	})
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	defer release(log, "display", surface.Close)

	width, height := surface.Size()
	log.Info().Str("driver", cfg.Driver).Msg("initializing browser")
	sess, err := browser.Open(ctx, cfg.Driver, browser.ChromeOptions{
		Headless:      cfg.Headless,
		Width:         width,
		Height:        height,
		Env:           surface.Env(),
		ExecPath:      cfg.ChromePath,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.Timeout,
		PageLoadDelay: cfg.PageLoadDelay,
		BlockMedia:    cfg.BlockMedia,
		Logger:        log,
	}, cfg.Cookie, cfg.CookieFile)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer release(log, "browser", sess.Close)
	defer func() {
		log.Info().Msg("shutting down")
	}()

	var out *tracks.Appender
	if flagDryRun {
		out = tracks.NewAppender(cmd.OutOrStdout(), "stdout", format)
	} else {
		out, err = tracks.OpenAppender(cfg.Output, format)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
	}
	defer release(log, "output", out.Close)

	var progress *ui.ProgressHandle
	if cfg.Progress && !flagDryRun {
		pm := ui.NewProgressManager(status)
		progress = pm.Register("tracks", out.Bytes)
		defer pm.Close(progress)
	}

	ex := extractor.New(sess, out, extractor.Options{
		URL:       cfg.URL,
		Selectors: cfg.Selectors,
		Logger:    log,
		Progress:  progressOrNil(progress),
	})

	res, err := ex.Run(ctx)
	stats.Rows = res.Rows
	stats.Bytes = out.Bytes()
	if err != nil {
		log.Error().Err(err).Int("rows", res.Rows).Msg("scrape failed")
		return err
	}

	if progress != nil {
		progress.MarkDone()
	}
	log.Debug().Str("final_url", sess.Location()).Msg("done")

	if !flagDryRun {
		stats.Print(status)
	}
	return nil
}

// progressOrNil keeps a nil handle from becoming a non-nil interface.
func progressOrNil(h *ui.ProgressHandle) extractor.Progress {
	if h == nil {
		return nil
	}
	return h
}

func release(log zerolog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("resource", what).Msg("close failed")
	}
}

// describeError prefixes extraction failures with their kind so the exit
// message says which stage failed.
func describeError(err error) string {
	var exErr *extractor.Error
	if errors.As(err, &exErr) {
		return fmt.Sprintf("error [%s]: %v", exErr.Kind, err)
	}
	return fmt.Sprintf("error: %v", err)
}
