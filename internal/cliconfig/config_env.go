package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (KEYSTONE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("resources-dir", os.Getenv("KEYSTONE_RESOURCES_DIR"), &cfg.ResourcesDir)
	s.setString("manifest", os.Getenv("KEYSTONE_MANIFEST"), &cfg.Manifest)
	s.setString("data-dir", os.Getenv("KEYSTONE_DATA_DIR"), &cfg.DataDir)
	s.setString("timeseries-db", os.Getenv("KEYSTONE_TIMESERIES_DB"), &cfg.TimeseriesDB)
	s.setString("relational-db", os.Getenv("KEYSTONE_RELATIONAL_DB"), &cfg.RelationalDB)
	s.setString("ledger", os.Getenv("KEYSTONE_LEDGER"), &cfg.Ledger)
	s.setString("ledger-dir", os.Getenv("KEYSTONE_LEDGER_DIR"), &cfg.LedgerDir)
	s.setString("profile", os.Getenv("KEYSTONE_PROFILE"), &cfg.Profile)
	s.setString("log-level", os.Getenv("KEYSTONE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("KEYSTONE_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("listen-addr", os.Getenv("KEYSTONE_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("components-dir", os.Getenv("KEYSTONE_COMPONENTS_DIR"), &cfg.ComponentsDir)
	s.setString("trace-endpoint", os.Getenv("KEYSTONE_TRACE_ENDPOINT"), &cfg.TraceEndpoint)

	if err := s.setIntFromString("queue-size", os.Getenv("KEYSTONE_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}

	if err := s.setBoolFromString("trace-insecure", os.Getenv("KEYSTONE_TRACE_INSECURE"), &cfg.TraceInsecure); err != nil {
		return err
	}

	if err := s.setDuration("connect-timeout", os.Getenv("KEYSTONE_CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("KEYSTONE_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return nil
}
