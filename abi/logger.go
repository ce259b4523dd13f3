package abi

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nopLog = zap.NewNop()
)

// Logger returns the abi package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLog
}

// SetLogger configures the abi package's logger. It is safe for concurrent
// use, but descriptor tables are built once, so bootstrap logs only reach a
// logger set before the first descriptor lookup. A nil logger restores the
// no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
