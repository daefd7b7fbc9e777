// Package logger provides the structured logging interface used across licensepurge.
//
// It wraps zerolog with a small field-oriented API:
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("package_id", 1324901).Info("Removing package")
//	log.InfoWithFields("Run complete", map[string]interface{}{"removed": 3})
//
// Console output is colored and human oriented. When logging.file is set,
// JSON lines are additionally appended to that file.
//
// Tests inject NewTestLogger, which records every message for assertions.
package logger
