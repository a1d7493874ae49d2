package keystone

import "errors"

// Errors returned by the public API. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start is called on a running instance.
	ErrAlreadyRunning = errors.New("keystone: already running")

	// ErrNotRunning is returned when Stop is called on an instance that is not running.
	ErrNotRunning = errors.New("keystone: not running")

	// ErrClosed is returned when Start is called after Stop.
	ErrClosed = errors.New("keystone: instance closed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("keystone: invalid configuration")
)
