package logging

import "github.com/sirupsen/logrus"

// Logrus adapts a *logrus.Logger to Logger. It is passed in via
// csp.WithLogger(logging.NewLogrus(logrus.StandardLogger())); the default
// Logger is Noop, not Logrus.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus wraps l for use as a Logger.
func NewLogrus(l *logrus.Logger) Logrus {
	return Logrus{entry: logrus.NewEntry(l)}
}

func (l Logrus) Debug(msg string, fields map[string]any) {
	l.entry.WithFields(fields).Debug(msg)
}

func (l Logrus) Info(msg string, fields map[string]any) {
	l.entry.WithFields(fields).Info(msg)
}
