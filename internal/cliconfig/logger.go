package cliconfig

import (
	"io"

	"github.com/bft-labs/keystone/pkg/log"
)

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg Config, out io.Writer) (*log.ZerologAdapter, error) {
	return log.NewZerolog(log.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    out,
	})
}
