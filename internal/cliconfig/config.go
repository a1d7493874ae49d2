package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
)

// Ledger backends.
const (
	LedgerStore = "store"
	LedgerFile  = "file"
)

// DefaultListenAddr is where the runtime health and metrics server listens.
const DefaultListenAddr = ":9464"

// Config holds CLI configuration for keystone.
type Config struct {
	// ResourcesDir holds manifest.yaml and the scripts. Empty means the
	// resources built into the binary.
	ResourcesDir string
	Manifest     string

	DataDir      string
	TimeseriesDB string
	RelationalDB string

	Ledger    string
	LedgerDir string

	Profile string

	LogLevel  string
	LogFormat string

	ListenAddr    string
	ComponentsDir string
	QueueSize     int

	// TraceEndpoint is an OTLP/gRPC collector. Empty disables tracing.
	TraceEndpoint string
	TraceInsecure bool

	ConnectTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Manifest:        "manifest.yaml",
		DataDir:         defaultDataDir(),
		Ledger:          LedgerStore,
		Profile:         "runtime",
		LogLevel:        "info",
		LogFormat:       "console",
		ListenAddr:      DefaultListenAddr,
		QueueSize:       1024,
		ConnectTimeout:  10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}

	if c.TimeseriesDB == "" || c.RelationalDB == "" || (c.Ledger == LedgerFile && c.LedgerDir == "") {
		if c.DataDir == "" {
			return fmt.Errorf("data-dir is required (or timeseries-db, relational-db and ledger-dir)")
		}
	}
	if c.TimeseriesDB == "" {
		c.TimeseriesDB = filepath.Join(c.DataDir, "timeseries.db")
	}
	if c.RelationalDB == "" {
		c.RelationalDB = filepath.Join(c.DataDir, "relational.db")
	}

	switch c.Ledger {
	case LedgerStore:
	case LedgerFile:
		if c.LedgerDir == "" {
			c.LedgerDir = c.DataDir
		}
	default:
		return fmt.Errorf("ledger must be %q or %q, got %q", LedgerStore, LedgerFile, c.Ledger)
	}

	if _, err := schema.ParseProfile(c.Profile); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != log.FormatConsole && c.LogFormat != log.FormatJSON {
		return fmt.Errorf("log format must be console or json, got %q", c.LogFormat)
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value if true and flag not changed.
func (s *configSetter) setBool(flag string, value bool, dst *bool) {
	if !value || s.changed[flag] {
		return
	}
	*dst = value
}

// setBoolFromString parses a string to bool and sets the destination if valid.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
