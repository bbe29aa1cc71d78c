package ingest

import (
	"flag"
	"time"
)

// Config defines the configurations for a Session.
type Config struct {
	RawInterval     time.Duration
	DecodedInterval time.Duration
	RawLimit        int
}

var defaultConfig = Config{
	RawInterval:     DefaultRawInterval,
	DecodedInterval: DefaultDecodedInterval,
	RawLimit:        DefaultRawLimit,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.RawInterval, "raw-interval", defaultConfig.RawInterval, "Interval of publishing raw bytes.")
	flag.DurationVar(&defaultConfig.DecodedInterval, "decoded-interval", defaultConfig.DecodedInterval, "Interval of publishing decoded channels.")
	flag.IntVar(&defaultConfig.RawLimit, "raw-limit", defaultConfig.RawLimit, "Max raw bytes kept between publishes, 0 for unlimited.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewSession creates a Session using the config.
func (c *Config) NewSession(sink Sink) *Session {
	s := NewSession(sink)
	s.RawInterval = c.RawInterval
	s.DecodedInterval = c.DecodedInterval
	s.RawLimit = c.RawLimit
	return s
}
