package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/central"
	"github.com/srg/blebehave/internal/device"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`
	Verbose  bool   `yaml:"verbose"`

	Search  SearchConfig  `yaml:"search"`
	Connect ConnectConfig `yaml:"connect"`
	GATT    GATTConfig    `yaml:"gatt"`
}

// SearchConfig controls scan windows.
type SearchConfig struct {
	Timeout  time.Duration `yaml:"timeout" default:"10s"`
	Repeat   string        `yaml:"repeat" default:"once"` // once, forever or times
	Times    int           `yaml:"times"`
	Services []string      `yaml:"services"`
	// CaptureAdvertisements keeps the last advertisement of every discovered device.
	CaptureAdvertisements bool `yaml:"capture_advertisements"`
}

// ConnectConfig controls the connection limit and retry budgets.
type ConnectConfig struct {
	Limit               int           `yaml:"limit" default:"1"`
	MaxRetries          int           `yaml:"max_retries"`
	RetryDelay          time.Duration `yaml:"retry_delay" default:"2s"`
	MaxReconnectRetries int           `yaml:"max_reconnect_retries"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay" default:"2s"`
}

// GATTConfig selects which characteristics are subscribed to and written.
type GATTConfig struct {
	AllReadable   bool     `yaml:"all_readable"`
	AllWritable   bool     `yaml:"all_writable"`
	ReadInterest  []string `yaml:"read"`
	WriteInterest []string `yaml:"write"`
	RxBufferSize  int      `yaml:"rx_buffer_size" default:"4096"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file over the defaults. Keys absent from the file keep their default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.Search.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be > 0, got %s", c.Search.Timeout)
	}
	switch c.Search.Repeat {
	case "once", "forever":
	case "times":
		if c.Search.Times < 1 {
			return fmt.Errorf("search.times must be >= 1 when search.repeat is \"times\", got %d", c.Search.Times)
		}
	default:
		return fmt.Errorf("search.repeat must be \"once\", \"forever\" or \"times\", got %q", c.Search.Repeat)
	}

	if c.Connect.Limit < 1 {
		return fmt.Errorf("connect.limit must be >= 1, got %d", c.Connect.Limit)
	}
	if c.Connect.MaxRetries < 0 || c.Connect.MaxReconnectRetries < 0 {
		return fmt.Errorf("connect retry budgets must be >= 0")
	}
	if c.Connect.RetryDelay < 0 || c.Connect.ReconnectDelay < 0 {
		return fmt.Errorf("connect retry delays must be >= 0")
	}

	if c.GATT.RxBufferSize <= 0 {
		return fmt.Errorf("gatt.rx_buffer_size must be > 0, got %d", c.GATT.RxBufferSize)
	}

	for field, uuids := range map[string][]string{
		"search.services": c.Search.Services,
		"gatt.read":       c.GATT.ReadInterest,
		"gatt.write":      c.GATT.WriteInterest,
	} {
		if len(uuids) == 0 {
			continue
		}
		if _, err := device.ValidateUUID(uuids...); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// Repeat returns the search repeat policy.
func (c *Config) Repeat() central.Repeat {
	switch c.Search.Repeat {
	case "forever":
		return central.SearchForever()
	case "times":
		return central.SearchTimes(c.Search.Times)
	default:
		return central.SearchOnce()
	}
}

// CentralOptions converts the config to orchestrator options.
func (c *Config) CentralOptions() central.Options {
	return central.Options{
		ServiceFilter:   device.NormalizeUUIDs(c.Search.Services),
		ConnectionLimit: c.Connect.Limit,
		Retry: central.RetryPolicy{
			MaxConnectRetries:   c.Connect.MaxRetries,
			ConnectRetryDelay:   c.Connect.RetryDelay,
			MaxReconnectRetries: c.Connect.MaxReconnectRetries,
			ReconnectRetryDelay: c.Connect.ReconnectDelay,
		},
		Verbose:                    c.Verbose,
		CaptureAdvertisements:      c.Search.CaptureAdvertisements,
		AllCharacteristicsReadable: c.GATT.AllReadable,
		AllCharacteristicsWritable: c.GATT.AllWritable,
		ReadInterest:               device.NormalizeUUIDs(c.GATT.ReadInterest),
		WriteInterest:              device.NormalizeUUIDs(c.GATT.WriteInterest),
		RxBufferSize:               c.GATT.RxBufferSize,
	}
}
