package cliconfig

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Manifest != "manifest.yaml" {
		t.Errorf("Manifest = %v, want manifest.yaml", cfg.Manifest)
	}
	if cfg.Ledger != LedgerStore {
		t.Errorf("Ledger = %v, want %v", cfg.Ledger, LedgerStore)
	}
	if cfg.Profile != "runtime" {
		t.Errorf("Profile = %v, want runtime", cfg.Profile)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %v, want %v", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.QueueSize != 1024 {
		t.Errorf("QueueSize = %v, want 1024", cfg.QueueSize)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
}

func validConfig() Config {
	return Config{
		Manifest:        "manifest.yaml",
		DataDir:         "/var/lib/keystone",
		Ledger:          LedgerStore,
		Profile:         "install",
		LogLevel:        "info",
		LogFormat:       "json",
		QueueSize:       16,
		ConnectTimeout:  time.Second,
		ShutdownTimeout: time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid minimal config", mutate: func(*Config) {}},
		{name: "missing manifest", mutate: func(c *Config) { c.Manifest = "" }, wantErr: true},
		{
			name: "explicit paths without data dir",
			mutate: func(c *Config) {
				c.DataDir = ""
				c.TimeseriesDB = "/ts.db"
				c.RelationalDB = "/rel.db"
			},
		},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: true},
		{
			name: "file ledger without any dir",
			mutate: func(c *Config) {
				c.DataDir = ""
				c.TimeseriesDB = "/ts.db"
				c.RelationalDB = "/rel.db"
				c.Ledger = LedgerFile
			},
			wantErr: true,
		},
		{name: "unknown ledger", mutate: func(c *Config) { c.Ledger = "etcd" }, wantErr: true},
		{name: "unknown profile", mutate: func(c *Config) { c.Profile = "migrate" }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
		{name: "zero queue size", mutate: func(c *Config) { c.QueueSize = 0 }, wantErr: true},
		{name: "zero connect timeout", mutate: func(c *Config) { c.ConnectTimeout = 0 }, wantErr: true},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDerivesPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger = LedgerFile
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if want := filepath.Join("/var/lib/keystone", "timeseries.db"); cfg.TimeseriesDB != want {
		t.Errorf("TimeseriesDB = %v, want %v", cfg.TimeseriesDB, want)
	}
	if want := filepath.Join("/var/lib/keystone", "relational.db"); cfg.RelationalDB != want {
		t.Errorf("RelationalDB = %v, want %v", cfg.RelationalDB, want)
	}
	if cfg.LedgerDir != "/var/lib/keystone" {
		t.Errorf("LedgerDir = %v, want /var/lib/keystone", cfg.LedgerDir)
	}
}

func TestConfigSetter(t *testing.T) {
	s := newConfigSetter(map[string]bool{"profile": true})

	profile := "runtime"
	s.setString("profile", "install", &profile)
	if profile != "runtime" {
		t.Errorf("changed flag overwritten: profile = %v", profile)
	}

	manifest := "manifest.yaml"
	s.setString("manifest", "", &manifest)
	if manifest != "manifest.yaml" {
		t.Errorf("empty value applied: manifest = %v", manifest)
	}

	size := 8
	s.setInt("queue-size", -1, &size)
	if size != 8 {
		t.Errorf("non-positive value applied: size = %v", size)
	}

	var d time.Duration
	if err := s.setDuration("connect-timeout", "soon", &d); err == nil {
		t.Error("setDuration() expected error for invalid duration")
	}
}
