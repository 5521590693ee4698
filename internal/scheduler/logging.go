package scheduler

import (
	"github.com/manav03panchal/medtrack/internal/logging"
)

// cronLogger routes cron's own messages to the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logging.DebugLog("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logging.Error("cron: "+msg, append(keysAndValues, logging.KeyError, err)...)
}
