// Package log holds the package-wide logger. It is a no-op by default
// so that library consumers pay nothing unless they opt in.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Set installs the logger used by this module. Passing nil restores the
// no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// L returns the current logger.
func L() *zap.Logger { return logger.Load() }
