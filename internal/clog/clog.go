// Package clog is chiwawa's thin wrapper around logrus, shared by every
// other internal package and cmd/chiwawa so log configuration (level,
// format, output) lives in exactly one place.
package clog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields so callers never import logrus directly.
type Fields = logrus.Fields

var global = logrus.New()

func init() {
	global.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLevel parses level ("debug", "info", "warn", "error", ...) and applies
// it to the global logger.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	global.SetLevel(lvl)
	return nil
}

// SetOutput redirects the global logger, e.g. to a trace file.
func SetOutput(w io.Writer) {
	global.SetOutput(w)
}

// WithFields returns an entry carrying the given structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return global.WithFields(fields)
}

func Debugf(format string, args ...interface{}) { global.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { global.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { global.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { global.Errorf(format, args...) }
