package config

import "time"

// File represents the structure of the YAML configuration file.
// Every field is optional; unset fields leave the Config untouched.
type File struct {
	// Seed is the URL the crawl starts from.
	Seed string `yaml:"seed,omitempty"`

	Crawl   CrawlSection   `yaml:"crawl,omitempty"`
	Proxy   ProxySection   `yaml:"proxy,omitempty"`
	Output  OutputSection  `yaml:"output,omitempty"`
	Logging LoggingSection `yaml:"logging,omitempty"`
	Report  ReportSection  `yaml:"report,omitempty"`
}

// CrawlSection configures link following and fetching.
type CrawlSection struct {
	MaxDepth         *int              `yaml:"maxDepth,omitempty"`
	Workers          int               `yaml:"workers,omitempty"`
	Timeout          time.Duration     `yaml:"timeout,omitempty"`
	Cooldown         *time.Duration    `yaml:"cooldown,omitempty"`
	UserAgent        string            `yaml:"userAgent,omitempty"`
	MaxBodySize      int64             `yaml:"maxBodySize,omitempty"`
	ExcludePrefixes  []string          `yaml:"excludePrefixes,omitempty"`
	ExcludeContains  []string          `yaml:"excludeContains,omitempty"`
	IncludeContains  []string          `yaml:"includeContains,omitempty"`
	SkipContentTypes []string          `yaml:"skipContentTypes,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	Cookie           string            `yaml:"cookie,omitempty"`
}

// ProxySection configures the outbound proxy.
type ProxySection struct {
	Host     string `yaml:"host,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Tor      *bool  `yaml:"tor,omitempty"`
}

// OutputSection configures where artifacts go.
type OutputSection struct {
	Dir     string  `yaml:"dir,omitempty"`
	Archive *string `yaml:"archive,omitempty"`
	Fresh   *bool   `yaml:"fresh,omitempty"`
}

// LoggingSection configures the rotated category log files.
type LoggingSection struct {
	Dir        string `yaml:"dir,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty"`
	Compress   *bool  `yaml:"compress,omitempty"`
}

// ReportSection configures the run report, metrics export and crawl ledger.
type ReportSection struct {
	File    string `yaml:"file,omitempty"`
	Format  string `yaml:"format,omitempty"`
	Metrics string `yaml:"metrics,omitempty"`
	DBDir   string `yaml:"dbDir,omitempty"`
	SaveDB  *bool  `yaml:"saveDB,omitempty"`
}

// Apply copies every set field of the file onto cfg.
func (cf *File) Apply(cfg *Config) {
	if cf.Seed != "" {
		cfg.SeedURL = cf.Seed
	}
	cf.Crawl.apply(cfg)
	cf.Proxy.apply(cfg)
	cf.Output.apply(cfg)
	cf.Logging.apply(cfg)
	cf.Report.apply(cfg)
}

func (s CrawlSection) apply(cfg *Config) {
	if s.MaxDepth != nil {
		cfg.MaxDepth = *s.MaxDepth
	}
	if s.Workers != 0 {
		cfg.Workers = s.Workers
	}
	if s.Timeout != 0 {
		cfg.Timeout = s.Timeout
	}
	if s.Cooldown != nil {
		cfg.FailureCooldown = *s.Cooldown
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if s.MaxBodySize != 0 {
		cfg.MaxBodySize = s.MaxBodySize
	}
	if len(s.ExcludePrefixes) > 0 {
		cfg.ExcludePrefixes = s.ExcludePrefixes
	}
	if len(s.ExcludeContains) > 0 {
		cfg.ExcludeContains = s.ExcludeContains
	}
	if len(s.IncludeContains) > 0 {
		cfg.IncludeContains = s.IncludeContains
	}
	if len(s.SkipContentTypes) > 0 {
		cfg.SkipContentTypes = s.SkipContentTypes
	}
	if len(s.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(s.Headers))
		}
		for k, v := range s.Headers {
			cfg.Headers[k] = v
		}
	}
	if s.Cookie != "" {
		cfg.Cookie = s.Cookie
	}
}

func (s ProxySection) apply(cfg *Config) {
	if s.Host != "" {
		cfg.ProxyHost = s.Host
	}
	if s.User != "" {
		cfg.ProxyUser = s.User
	}
	if s.Password != "" {
		cfg.ProxyPassword = s.Password
	}
	if s.Tor != nil {
		cfg.UseEmbeddedTor = *s.Tor
	}
}

func (s OutputSection) apply(cfg *Config) {
	if s.Dir != "" {
		cfg.OutputDir = s.Dir
	}
	if s.Archive != nil {
		cfg.ArchiveName = *s.Archive
	}
	if s.Fresh != nil {
		cfg.FreshOutput = *s.Fresh
	}
}

func (s LoggingSection) apply(cfg *Config) {
	if s.Dir != "" {
		cfg.LogDir = s.Dir
	}
	if s.MaxSizeMB != 0 {
		cfg.LogMaxSizeMB = s.MaxSizeMB
	}
	if s.MaxBackups != 0 {
		cfg.LogMaxBackups = s.MaxBackups
	}
	if s.MaxAgeDays != 0 {
		cfg.LogMaxAgeDays = s.MaxAgeDays
	}
	if s.Compress != nil {
		cfg.LogCompress = *s.Compress
	}
}

func (s ReportSection) apply(cfg *Config) {
	if s.File != "" {
		cfg.ReportFile = s.File
	}
	if s.Format != "" {
		cfg.ReportFormat = s.Format
	}
	if s.Metrics != "" {
		cfg.MetricsFile = s.Metrics
	}
	if s.DBDir != "" {
		cfg.DBDir = s.DBDir
	}
	if s.SaveDB != nil {
		cfg.SaveToDB = *s.SaveDB
	}
}
