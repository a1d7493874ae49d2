// Package log provides the logging abstraction shared by keystone components.
//
// Components depend only on the Logger interface. The zerolog adapter is
// what the keystone binary uses; the no-op logger is for tests and for
// library users who do not want output.
//
// # Usage
//
//	logger, err := log.NewZerolog(log.Options{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logger.Info("artifact applied",
//	    log.String("artifact", "ts-tables"),
//	    log.Int("statements", 4),
//	)
//
// Child loggers carry fields on every message:
//
//	storeLog := log.With(logger, log.String("store", "timeseries"))
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
