package analytics

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// LogTracker writes each event as a structured log entry.
type LogTracker struct {
	logger *logrus.Logger
}

func NewLogTracker(logger *logrus.Logger) (*LogTracker, error) {
	if logger == nil {
		return nil, errors.New("logger is nil")
	}
	return &LogTracker{logger: logger}, nil
}

func (t *LogTracker) Track(namespace Namespace, action Action, props Properties) error {
	fields := logrus.Fields{
		"component": "analytics",
		"namespace": string(namespace),
		"action":    string(action),
	}
	for k, v := range props {
		fields["prop_"+k] = v
	}
	t.logger.WithFields(fields).Infof("%s.%s", namespace, action)
	return nil
}
