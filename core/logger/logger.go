package logger

// Logger exposes logging methods for common severity levels. Core
// packages depend on this interface only; the zerolog adapter lives in
// infra/logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
