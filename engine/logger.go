package engine

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerOnce sync.Once
	logger     *zap.Logger
	debug      bool
)

// Logger returns the package-wide logger, defaulting to a no-op logger
// until SetLogger is called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs the logger used by the engine package.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}

// SetDebug toggles verbose instruction-level debug logging.
func SetDebug(on bool) {
	debug = on
}

func debugf(msg string, fields ...zap.Field) {
	if debug {
		Logger().Debug(msg, fields...)
	}
}
