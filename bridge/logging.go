package bridge

import (
	"github.com/sirupsen/logrus"
)

// logger carries the standard fields of one bridge operation.
type logger struct {
	fields logrus.Fields
}

func newLogger(function string) *logger {
	return &logger{fields: logrus.Fields{
		"function": function,
		"package":  "bridge",
	}}
}

// WithField sets one extra field.
func (l *logger) WithField(key string, value interface{}) *logger {
	l.fields[key] = value
	return l
}

// WithError records err and the step that produced it.
func (l *logger) WithError(err error, operation string) *logger {
	l.fields["error"] = err.Error()
	l.fields["operation"] = operation
	return l
}

// Debug logs a per-call trace.
func (l *logger) Debug(message string) { logrus.WithFields(l.fields).Debug(message) }

// Warn logs a recoverable anomaly.
func (l *logger) Warn(message string) { logrus.WithFields(l.fields).Warn(message) }

// Fatal logs at error level and panics with err. Trampolines use it when a
// callback cannot be delivered; the native library has no way to recover.
func (l *logger) Fatal(message string, err error) {
	logrus.WithFields(l.WithError(err, "deliver").fields).Error(message)
	panic(err)
}
