package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/sitespider/internal/config"
	"github.com/nao1215/sitespider/internal/crawler"
	"github.com/nao1215/sitespider/internal/database"
	"github.com/nao1215/sitespider/internal/extract"
	"github.com/nao1215/sitespider/internal/fetch"
	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/metrics"
	"github.com/nao1215/sitespider/internal/output"
	"github.com/nao1215/sitespider/internal/pipeline"
	"github.com/nao1215/sitespider/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl a site and save its pages, documents and archives",
		Long: `Crawl fetches the seed URL, then every in-scope link it finds, one generation
at a time, until the depth bound is reached or no new URL is left.

Pages are saved to html/ with their visible text in txt/. PDF documents go to
pdf/ with their text in pdf2txt/. Zip archives go to zip/ and their members
are unpacked and saved like any other resource. When the crawl ends the
output directory is packaged into a zip file next to it.

Examples:
  # Crawl a site three links deep
  sitespider crawl -d 3 https://example.com/

  # Stay below /docs and skip the blog
  sitespider crawl -i example.com/docs -x https://example.com/blog https://example.com/docs/

  # Crawl through an authenticated HTTP proxy
  sitespider crawl --proxy 10.0.0.1:3128 --proxy-user alice --proxy-password secret https://example.com/

  # Crawl an onion service through an embedded Tor daemon
  sitespider crawl --tor http://exampleonion.onion/

  # Keep earlier artifacts and only fetch what is new
  sitespider crawl --keep-output https://example.com/

Flags override values from the configuration file (.sitespider.yaml).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitespider.yaml or ~/.config/sitespider/config.yaml)")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Number of link hops followed from the seed (0 fetches only the seed)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetches within one generation")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of one HTTP request")
	cmd.Flags().Duration("cooldown", config.DefaultFailureCooldown,
		"Pause after a failed fetch")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest response body read, in bytes")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header as "Key: Value" (repeatable)`)
	cmd.Flags().String("cookie", "",
		"Cookie header sent with every request")

	// URL filter flags
	cmd.Flags().StringSliceP("exclude-prefix", "x", nil,
		"Skip URLs starting with this prefix (repeatable)")
	cmd.Flags().StringSlice("exclude", nil,
		"Skip URLs containing this string (repeatable)")
	cmd.Flags().StringSliceP("include", "i", nil,
		"Only fetch URLs containing one of these strings (repeatable)")
	cmd.Flags().StringSlice("skip-content-type", nil,
		"Do not save responses whose content type contains this string (repeatable)")

	// Proxy flags
	cmd.Flags().String("proxy", "",
		"Proxy for http and https (host:port, or socks5://host:port)")
	cmd.Flags().String("proxy-user", "",
		"Proxy user name")
	cmd.Flags().String("proxy-password", "",
		"Proxy password")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and crawl through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Output directory for the artifacts")
	cmd.Flags().String("archive", config.DefaultArchiveName,
		"Zip file the output directory is packaged into (empty disables packaging)")
	cmd.Flags().Bool("keep-output", false,
		"Keep artifacts of earlier runs and skip URLs already downloaded")
	cmd.Flags().String("log-dir", config.XDGStateDir(),
		"Directory of the category log files (empty disables them)")

	// Report flags
	cmd.Flags().StringP("format", "f", config.ReportFormatText,
		"Report format: text, markdown or json")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().String("metrics-file", "",
		"Export crawl metrics in the Prometheus text format to this file")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the crawl ledger database")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the crawl ledger")
	cmd.Flags().Bool("no-progress", false,
		"Hide the progress bar")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	clamped := cfg.ClampMaxDepth()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	if clamped {
		logger.Warn("max depth clamped", "limit", config.MaxDepthLimit)
	}

	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, crawlIO{
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		progress: !noProgress,
		logger:   logger,
	})
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags the user set, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}

	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var errs []error
	setInt := func(name string, dst *int) {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setSlice := func(name string, dst *[]string) {
		if flags.Changed(name) {
			v, err := flags.GetStringSlice(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if flags.Changed(name) {
			v, err := flags.GetBool(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	setInt("depth", &cfg.MaxDepth)
	setInt("workers", &cfg.Workers)
	setString("user-agent", &cfg.UserAgent)
	setString("cookie", &cfg.Cookie)
	setSlice("exclude-prefix", &cfg.ExcludePrefixes)
	setSlice("exclude", &cfg.ExcludeContains)
	setSlice("include", &cfg.IncludeContains)
	setSlice("skip-content-type", &cfg.SkipContentTypes)
	setString("proxy", &cfg.ProxyHost)
	setString("proxy-user", &cfg.ProxyUser)
	setString("proxy-password", &cfg.ProxyPassword)
	setBool("tor", &cfg.UseEmbeddedTor)
	setString("output-dir", &cfg.OutputDir)
	setString("archive", &cfg.ArchiveName)
	setString("log-dir", &cfg.LogDir)
	setString("format", &cfg.ReportFormat)
	setString("report-file", &cfg.ReportFile)
	setString("metrics-file", &cfg.MetricsFile)
	setString("db-dir", &cfg.DBDir)

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		errs = append(errs, err)
		cfg.Timeout = v
	}
	if flags.Changed("cooldown") {
		v, err := flags.GetDuration("cooldown")
		errs = append(errs, err)
		cfg.FailureCooldown = v
	}
	if flags.Changed("tor-timeout") {
		v, err := flags.GetDuration("tor-timeout")
		errs = append(errs, err)
		cfg.TorStartupTimeout = v
	}
	if flags.Changed("max-body-size") {
		v, err := flags.GetInt64("max-body-size")
		errs = append(errs, err)
		cfg.MaxBodySize = v
	}
	if flags.Changed("keep-output") {
		keep, err := flags.GetBool("keep-output")
		errs = append(errs, err)
		cfg.FreshOutput = !keep
	}
	if flags.Changed("no-db") {
		noDB, err := flags.GetBool("no-db")
		errs = append(errs, err)
		cfg.SaveToDB = !noDB
	}
	if flags.Changed("header") {
		raw, err := flags.GetStringArray("header")
		errs = append(errs, err)
		headers, err := parseHeaders(raw)
		errs = append(errs, err)
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}

	return errors.Join(errs...)
}

// parseHeaders converts "Key: Value" strings into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", h)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// crawlIO holds the destinations of one crawl command run.
type crawlIO struct {
	stdout   io.Writer
	stderr   io.Writer
	progress bool
	logger   *slog.Logger
}

// runCrawl wires the crawl components from cfg and executes the pipeline.
func runCrawl(ctx context.Context, cfg *config.Config, cio crawlIO) error {
	logger := cio.logger
	if logger == nil {
		logger = slog.Default()
	}

	channels, err := spiderlog.NewChannels(spiderlog.ChannelOptions{
		Console:    cio.stderr,
		Verbose:    cfg.Verbose,
		Dir:        cfg.LogDir,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		return err
	}
	defer channels.Close()

	proxyURL, stopProxy, err := resolveProxy(ctx, cfg, cio.stderr, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	client, err := fetch.NewHTTPClient(fetch.ClientOptions{
		ProxyURL:  proxyURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Cookie:    cfg.Cookie,
		Headers:   cfg.Headers,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	var (
		ledger pipeline.Ledger
		next   crawler.Recorder
	)
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		ledger = db
		next = db
	}

	writer, closeReport, err := openReport(cfg, cio.stdout)
	if err != nil {
		return err
	}
	defer closeReport()

	m := metrics.New()
	collector := pipeline.NewCollector(next)
	layout := output.NewLayout(cfg.OutputDir)
	state := pipeline.NewState(uuid.NewString(), cfg.SeedURL, cfg.MaxDepth, layout)

	filter := crawler.NewFilter(
		crawler.Rules{
			ExcludePrefixes: cfg.ExcludePrefixes,
			ExcludeContains: cfg.ExcludeContains,
			IncludeContains: cfg.IncludeContains,
		},
		crawler.WithExcludedLogger(channels.Excluded),
		crawler.WithDropHook(m.LinkDropped),
	)

	engineOpts := []crawler.EngineOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithCooldown(cfg.FailureCooldown),
		crawler.WithChannels(channels),
		crawler.WithObserver(m),
		crawler.WithRecorder(collector),
		crawler.WithRunID(state.RunID),
	}
	if cio.progress {
		engineOpts = append(engineOpts, crawler.WithObserver(newProgressObserver(cio.stderr)))
	}

	engine := crawler.NewEngine(
		fetch.NewHTTPFetcher(client, fetch.WithMaxBodySize(cfg.MaxBodySize)),
		extract.NewDefaultRegistry(channels, cfg.SkipContentTypes),
		layout,
		filter,
		engineOpts...,
	)

	p := pipeline.DefaultPipeline(cfg, pipeline.Components{
		Crawler:   engine,
		Ledger:    ledger,
		Collector: collector,
		Reports:   []report.Writer{writer},
		Metrics:   m,
	}, pipeline.WithLogger(logger))

	if err := p.Execute(ctx, state); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if cfg.ReportFile != "" {
		fmt.Fprintf(cio.stdout, "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}

// resolveProxy returns the proxy URL of the run, starting the embedded Tor
// daemon when asked to. The returned stop function is always non-nil.
func resolveProxy(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (string, func(), error) {
	noop := func() {}

	var proxyURL string
	stop := noop
	if cfg.UseEmbeddedTor {
		fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
		fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		tor := fetch.NewEmbeddedTor(fetch.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := tor.Start(ctx); err != nil {
			return "", noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop = func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		var err error
		proxyURL, err = tor.ProxyURL()
		if err != nil {
			stop()
			return "", noop, err
		}
		logger.Info("embedded Tor daemon started", "socksAddr", tor.SocksAddr())
	} else {
		var err error
		proxyURL, err = cfg.ProxyURL()
		if err != nil {
			return "", noop, err
		}
	}

	if proxyURL == "" {
		return "", stop, nil
	}

	if status := fetch.CheckProxy(ctx, proxyURL); status != fetch.ProxyStatusOK {
		stop()
		return "", noop, fmt.Errorf("proxy check failed: %s (make sure the proxy is running at %s)",
			status, spiderlog.RedactUserinfo(proxyURL))
	}
	logger.Info("proxy connection verified", "proxy", proxyURL)

	return proxyURL, stop, nil
}

// openReport returns the report writer of the run and a function closing
// its destination.
func openReport(cfg *config.Config, stdout io.Writer) (report.Writer, func(), error) {
	if cfg.ReportFile == "" {
		w, err := report.NewWriter(cfg.ReportFormat, stdout, cfg.Verbose, getVersion())
		return w, func() {}, err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	// Reports list crawled URLs, which may be private.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}

	w, err := report.NewWriter(cfg.ReportFormat, f, true, getVersion())
	if err != nil {
		_ = f.Close() //nolint:errcheck // the format error is returned
		return nil, nil, err
	}
	return w, func() { _ = f.Close() }, nil //nolint:errcheck // nothing to report after the run
}
