package linker

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nopLog = zap.NewNop()
)

// Logger returns the linker package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLog
}

// SetLogger configures the linker package's logger. It is safe to call
// while other goroutines validate options or plan calls. A nil logger
// restores the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
