package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes notifications to a logger. It never fails.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a dispatcher that records notifications in the log.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) Notify(_ context.Context, n Notification) error {
	l.logger.Info(n.Title,
		zap.String("body", n.Body),
		zap.Any("payload", n.Payload))
	return nil
}
