package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes notifications to the structured log. It is the default
// channel kind and the one used in development.
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the message at info level.
func (s *LogSender) Send(_ context.Context, target string, msg Message) error {
	s.log.WithFields(logrus.Fields{
		"target":     target,
		"event":      msg.Event,
		"request_id": msg.RequestID,
		"status":     msg.Status,
		"recipients": msg.Recipients,
	}).Info("notification")

	return nil
}
