package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ResourcesDir    string `toml:"resources_dir"`
	Manifest        string `toml:"manifest"`
	DataDir         string `toml:"data_dir"`
	TimeseriesDB    string `toml:"timeseries_db"`
	RelationalDB    string `toml:"relational_db"`
	Ledger          string `toml:"ledger"`
	LedgerDir       string `toml:"ledger_dir"`
	Profile         string `toml:"profile"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	ListenAddr      string `toml:"listen_addr"`
	ComponentsDir   string `toml:"components_dir"`
	QueueSize       int    `toml:"queue_size"`
	TraceEndpoint   string `toml:"trace_endpoint"`
	TraceInsecure   bool   `toml:"trace_insecure"`
	ConnectTimeout  string `toml:"connect_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.keystone/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".keystone", "config.toml")
	}
	return ""
}

func defaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".keystone", "data")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("resources-dir", fc.ResourcesDir, &cfg.ResourcesDir)
	s.setString("manifest", fc.Manifest, &cfg.Manifest)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("timeseries-db", fc.TimeseriesDB, &cfg.TimeseriesDB)
	s.setString("relational-db", fc.RelationalDB, &cfg.RelationalDB)
	s.setString("ledger", fc.Ledger, &cfg.Ledger)
	s.setString("ledger-dir", fc.LedgerDir, &cfg.LedgerDir)
	s.setString("profile", fc.Profile, &cfg.Profile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("listen-addr", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("components-dir", fc.ComponentsDir, &cfg.ComponentsDir)

	s.setString("trace-endpoint", fc.TraceEndpoint, &cfg.TraceEndpoint)

	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setBool("trace-insecure", fc.TraceInsecure, &cfg.TraceInsecure)

	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
