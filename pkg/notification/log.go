package notification

import (
	"github.com/raykavin/pairwatch/pkg/logger"
)

// Log writes alerts to a logger instead of an external channel
type Log struct {
	log logger.Logger
}

func NewLog(log logger.Logger) *Log {
	return &Log{log: log.WithField("sink", "log")}
}

func (l *Log) Notify(text string) {
	l.log.Info(text)
}

func (l *Log) OnError(err error) {
	l.log.Warn(formatError(err))
}
