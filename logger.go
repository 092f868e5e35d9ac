package tinyinject

import (
	"log/slog"
	"sync/atomic"
)

var defaultErrorLogger atomic.Pointer[slog.Logger]

// SetDefaultErrorLogger sets the logger used by injectors created without WithLogger.
// By default slog.Default() is used.
func SetDefaultErrorLogger(l *slog.Logger) {
	defaultErrorLogger.Store(l)
}

func logger() *slog.Logger {
	if l := defaultErrorLogger.Load(); l != nil {
		return l
	}

	return slog.Default()
}
