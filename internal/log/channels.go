package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Channel names. Each category channel writes to its own file named after
// the channel.
const (
	ChannelErrors      = "errors"
	ChannelExcluded    = "excluded_urls"
	ChannelContentType = "content_type"
	ChannelDownloaded  = "downloaded_urls"
)

// Channels is the set of loggers of one crawl run. Recoverable errors are
// reported here instead of being returned to the caller of the engine.
type Channels struct {
	// Main receives run level progress and warnings.
	Main *slog.Logger

	// Errors receives fetch failures, non-2xx responses and extraction
	// problems.
	Errors *slog.Logger

	// Excluded receives links dropped by the URL filter.
	Excluded *slog.Logger

	// ContentType receives responses whose content type is not handled.
	ContentType *slog.Logger

	// Downloaded receives every fetch attempt and cache-hit skip.
	Downloaded *slog.Logger

	closers []io.Closer
}

// ChannelOptions configures NewChannels.
type ChannelOptions struct {
	// Console receives every channel at the console level. Nil discards.
	Console io.Writer

	// Verbose lowers the console level to Debug.
	Verbose bool

	// Dir receives one rotated file per category channel. Empty disables
	// file output.
	Dir string

	// MaxSizeMB, MaxBackups, MaxAgeDays and Compress control rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewChannels builds the category loggers. Every logger redacts credentials
// through SecureHandler. Call Close when the run ends to flush the files.
func NewChannels(opts ChannelOptions) (*Channels, error) {
	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: levelFor(opts.Verbose)})

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	c := &Channels{Main: slog.New(NewSecureHandler(consoleHandler))}
	c.Errors = c.category(ChannelErrors, consoleHandler, opts)
	c.Excluded = c.category(ChannelExcluded, consoleHandler, opts)
	c.ContentType = c.category(ChannelContentType, consoleHandler, opts)
	c.Downloaded = c.category(ChannelDownloaded, consoleHandler, opts)
	return c, nil
}

// category builds one channel logger: the console handler tagged with the
// channel name, plus a rotated file when a directory is configured.
func (c *Channels) category(name string, console slog.Handler, opts ChannelOptions) *slog.Logger {
	handlers := []slog.Handler{console.WithAttrs([]slog.Attr{slog.String("channel", name)})}

	if opts.Dir != "" {
		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, name+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		c.closers = append(c.closers, file)
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(NewSecureHandler(newTeeHandler(handlers...)))
}

// Close closes the rotated log files.
func (c *Channels) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// NewDiscardChannels returns channels that drop everything.
func NewDiscardChannels() *Channels {
	discard := slog.New(slog.DiscardHandler)
	return &Channels{
		Main:        discard,
		Errors:      discard,
		Excluded:    discard,
		ContentType: discard,
		Downloaded:  discard,
	}
}

// NewChannelsFromLogger routes every channel to logger, tagging each
// category with its channel name.
func NewChannelsFromLogger(logger *slog.Logger) *Channels {
	return &Channels{
		Main:        logger,
		Errors:      logger.With("channel", ChannelErrors),
		Excluded:    logger.With("channel", ChannelExcluded),
		ContentType: logger.With("channel", ChannelContentType),
		Downloaded:  logger.With("channel", ChannelDownloaded),
	}
}
