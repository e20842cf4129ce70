package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitespider"

	// DefaultOutputDir is the output root created in the working directory.
	DefaultOutputDir = "output"

	// DefaultArchiveName is the file the output root is packaged into.
	DefaultArchiveName = "output.zip"

	// DefaultMaxDepth is the number of link hops followed from the seed.
	DefaultMaxDepth = 1000

	// MaxDepthLimit is the largest depth bound a run accepts. Larger values
	// are clamped with a warning.
	MaxDepthLimit = 100000

	// DefaultWorkers fetches one URL at a time, which keeps the crawl
	// sequential unless asked otherwise.
	DefaultWorkers = 1

	// DefaultTimeout is the HTTP client timeout per request.
	DefaultTimeout = 60 * time.Second

	// DefaultFailureCooldown is the pause after a transport error, long enough
	// for a flaky proxy to recover.
	DefaultFailureCooldown = 2 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "sitespider/1.0 (+https://github.com/nao1215/sitespider)"

	// DefaultMaxBodySize limits the response body size read into memory.
	DefaultMaxBodySize = 64 * 1024 * 1024 // 64MB

	// DefaultLogMaxSizeMB is the size at which a category log file is rotated.
	DefaultLogMaxSizeMB = 10

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3

	// DefaultLogMaxAgeDays is the number of days rotated log files are kept.
	DefaultLogMaxAgeDays = 28

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// ReportFormatText selects the plain text run report.
	ReportFormatText = "text"

	// ReportFormatMarkdown selects the markdown run report.
	ReportFormatMarkdown = "markdown"

	// ReportFormatJSON selects the JSON run report.
	ReportFormatJSON = "json"
)

// Config holds all configuration options of a crawl run.
// It is populated from defaults, the config file and CLI flags, then passed
// down explicitly; no package reads global configuration.
type Config struct {
	// SeedURL is the URL the crawl starts from.
	SeedURL string

	// ProxyHost is the proxy used for both http and https requests.
	// A bare "host:port" is treated as an HTTP proxy; a value with a scheme
	// (for example "socks5://127.0.0.1:9050") keeps that scheme.
	ProxyHost string

	// ProxyUser and ProxyPassword authenticate against ProxyHost.
	ProxyUser     string
	ProxyPassword string

	// OutputDir is the output root holding the fixed artifact subdirectories.
	OutputDir string

	// ArchiveName is the zip file the output root is packaged into after the
	// crawl. Relative names are placed next to the output root. Empty
	// disables packaging.
	ArchiveName string

	// MaxDepth is the number of link hops followed from the seed.
	// Zero fetches only the seed.
	MaxDepth int

	// ExcludePrefixes drops URLs starting with any of these strings.
	ExcludePrefixes []string

	// ExcludeContains drops URLs containing any of these strings.
	ExcludeContains []string

	// IncludeContains admits only URLs containing at least one of these
	// strings. An empty list admits every URL.
	IncludeContains []string

	// SkipContentTypes lists content-type substrings whose responses are
	// treated as unhandled even when an extractor exists.
	SkipContentTypes []string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Cookie is sent as the Cookie header when not empty.
	Cookie string

	// Workers is the number of concurrent fetches within one generation.
	Workers int

	// Timeout is the HTTP client timeout per request.
	Timeout time.Duration

	// FailureCooldown is the pause after each failed fetch.
	FailureCooldown time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Zero uses DefaultMaxBodySize.
	MaxBodySize int64

	// FreshOutput wipes the output root before the crawl. When false,
	// artifacts from earlier runs are kept and act as a download cache.
	FreshOutput bool

	// LogDir receives the rotated category log files. Empty disables them.
	LogDir string

	// LogMaxSizeMB, LogMaxBackups, LogMaxAgeDays and LogCompress control
	// rotation of the category log files.
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Verbose enables debug level console logging.
	Verbose bool

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string

	// DBDir is the directory holding the crawl ledger database.
	DBDir string

	// SaveToDB records the run and its resources in the crawl ledger.
	SaveToDB bool

	// ReportFile receives the run report. Empty writes to stdout only.
	ReportFile string

	// ReportFormat is ReportFormatText, ReportFormatMarkdown or ReportFormatJSON.
	ReportFormat string

	// MetricsFile receives crawl metrics in the Prometheus text format.
	// Empty disables the export.
	MetricsFile string

	// UseEmbeddedTor starts a private Tor daemon and routes fetches through it.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:         DefaultOutputDir,
		ArchiveName:       DefaultArchiveName,
		MaxDepth:          DefaultMaxDepth,
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
		FailureCooldown:   DefaultFailureCooldown,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		FreshOutput:       true,
		LogDir:            XDGStateDir(),
		LogMaxSizeMB:      DefaultLogMaxSizeMB,
		LogMaxBackups:     DefaultLogMaxBackups,
		LogMaxAgeDays:     DefaultLogMaxAgeDays,
		LogCompress:       true,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		ReportFormat:      ReportFormatText,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGDataDir returns the XDG data directory for sitespider.
// On Linux: ~/.local/share/sitespider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitespider.
// On Linux: ~/.config/sitespider
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory, the default home of the
// category log files.
// On Linux: ~/.local/state/sitespider
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// ClampMaxDepth lowers MaxDepth to MaxDepthLimit when it is larger.
// It reports whether the value was changed so the caller can warn.
func (c *Config) ClampMaxDepth() bool {
	if c.MaxDepth > MaxDepthLimit {
		c.MaxDepth = MaxDepthLimit
		return true
	}
	return false
}

// ProxyURL returns the proxy URL used for both http and https, or an empty
// string when no proxy is configured. Credentials are embedded as userinfo.
func (c *Config) ProxyURL() (string, error) {
	if c.ProxyHost == "" {
		return "", nil
	}

	raw := c.ProxyHost
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidProxy, c.ProxyHost)
	}

	if c.ProxyUser != "" {
		if c.ProxyPassword != "" {
			u.User = url.UserPassword(c.ProxyUser, c.ProxyPassword)
		} else {
			u.User = url.User(c.ProxyUser)
		}
	}
	return u.String(), nil
}

// ArchivePath returns where the packaged output is written, or an empty
// string when packaging is disabled.
func (c *Config) ArchivePath() string {
	if c.ArchiveName == "" {
		return ""
	}
	if filepath.IsAbs(c.ArchiveName) {
		return c.ArchiveName
	}
	return filepath.Join(filepath.Dir(filepath.Clean(c.OutputDir)), c.ArchiveName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeed
	}

	u, err := url.Parse(c.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedScheme, c.SeedURL)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrNoOutputDir
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.FailureCooldown < 0 {
		return ErrInvalidCooldown
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyHost != "" && c.UseEmbeddedTor {
		return ErrConflictingProxy
	}

	if _, err := c.ProxyURL(); err != nil {
		return err
	}

	switch c.ReportFormat {
	case ReportFormatText, ReportFormatMarkdown, ReportFormatJSON:
	default:
		return ErrInvalidReportFormat
	}

	return nil
}
