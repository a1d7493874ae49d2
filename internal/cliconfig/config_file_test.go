package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				ResourcesDir:    "/etc/keystone/resources",
				Manifest:        "manifest.yaml",
				DataDir:         "/var/lib/keystone",
				Ledger:          "file",
				Profile:         "install",
				LogLevel:        "warn",
				QueueSize:       128,
				TraceEndpoint:   "collector:4317",
				TraceInsecure:   true,
				ConnectTimeout:  "5s",
				ShutdownTimeout: "30s",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				ResourcesDir:    "/etc/keystone/resources",
				Manifest:        "manifest.yaml",
				DataDir:         "/var/lib/keystone",
				Ledger:          "file",
				Profile:         "install",
				LogLevel:        "warn",
				QueueSize:       128,
				TraceEndpoint:   "collector:4317",
				TraceInsecure:   true,
				ConnectTimeout:  5 * time.Second,
				ShutdownTimeout: 30 * time.Second,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Profile:  "upgrade",
				DataDir:  "/config/data",
				Manifest: "config.yaml",
			},
			changed: map[string]bool{"profile": true, "data-dir": true},
			initial: Config{
				Profile: "install",
				DataDir: "/flag/data",
			},
			expected: Config{
				Profile:  "install",    // unchanged because flag was set
				DataDir:  "/flag/data", // unchanged because flag was set
				Manifest: "config.yaml",
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{ConnectTimeout: "whenever"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.TrimSpace(`
resources_dir = "/etc/keystone/resources"
data_dir = "/var/lib/keystone"
ledger = "file"
profile = "upgrade"
log_format = "json"
listen_addr = "127.0.0.1:9464"
components_dir = "/etc/keystone/components"
queue_size = 256
connect_timeout = "15s"
trace_endpoint = "collector:4317"
trace_insecure = true
`)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.ResourcesDir != "/etc/keystone/resources" {
		t.Errorf("ResourcesDir = %v", fc.ResourcesDir)
	}
	if fc.Ledger != "file" {
		t.Errorf("Ledger = %v, want file", fc.Ledger)
	}
	if fc.Profile != "upgrade" {
		t.Errorf("Profile = %v, want upgrade", fc.Profile)
	}
	if fc.QueueSize != 256 {
		t.Errorf("QueueSize = %v, want 256", fc.QueueSize)
	}
	if fc.ConnectTimeout != "15s" {
		t.Errorf("ConnectTimeout = %v, want 15s", fc.ConnectTimeout)
	}
	if fc.ComponentsDir != "/etc/keystone/components" {
		t.Errorf("ComponentsDir = %v", fc.ComponentsDir)
	}
	if fc.TraceEndpoint != "collector:4317" || !fc.TraceInsecure {
		t.Errorf("TraceEndpoint = %v, TraceInsecure = %v", fc.TraceEndpoint, fc.TraceInsecure)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFileConfig() expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("profile = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if FileExists(path) {
		t.Error("FileExists() = true for missing file")
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
}
