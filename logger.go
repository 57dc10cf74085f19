package wstask

import (
	"io"

	"github.com/sirupsen/logrus"
)

type logger interface {
	WithField(key string, value any) logger
	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)
}

// logrusLogger adapts a logrus entry to the logger interface.
type logrusLogger struct {
	*logrus.Entry
}

func (l logrusLogger) WithField(key string, value any) logger {
	return logrusLogger{Entry: l.Entry.WithField(key, value)}
}

// NewLogrusLogger wraps a logrus logger.
func NewLogrusLogger(l *logrus.Logger) logger {
	return logrusLogger{Entry: logrus.NewEntry(l)}
}

func defaultLogger() logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return NewLogrusLogger(l)
}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return NewLogrusLogger(l)
}
