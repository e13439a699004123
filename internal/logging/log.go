/*
 *
 * jesse galley <jesse@jessegalley.net>
 */

// Package logging holds the process wide logger used for diagnostics.
// Benchmark reports are written to stdout by the output package, so
// everything logged here goes to stderr.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var defaultLog *logrus.Logger

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   false,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	return log
}

func init() {
	defaultLog = newLogger()
}

// SetDebug switches the default logger to debug level
func SetDebug() {
	SetLevel(defaultLog, logrus.DebugLevel)
}

// SetQuiet only lets errors through
func SetQuiet() {
	SetLevel(defaultLog, logrus.ErrorLevel)
}

// SetLevel sets the level of the provided logger
func SetLevel(logger *logrus.Logger, level logrus.Level) {
	logger.SetLevel(level)
}

// SetOutput redirects the default logger, mostly useful in tests
func SetOutput(w io.Writer) {
	defaultLog.SetOutput(w)
}

// IsDebug reports whether debug messages are currently emitted
func IsDebug() bool {
	return defaultLog.IsLevelEnabled(logrus.DebugLevel)
}

// Debug - debug message
func Debug(args ...interface{}) {
	defaultLog.Debug(args...)
}

// Debugf - debug message
func Debugf(format string, args ...interface{}) {
	defaultLog.Debugf(format, args...)
}

// Error - error message
func Error(args ...interface{}) {
	defaultLog.Error(args...)
}

// Errorf - error message
func Errorf(format string, args ...interface{}) {
	defaultLog.Errorf(format, args...)
}

// Info - info message
func Info(args ...interface{}) {
	defaultLog.Info(args...)
}

// Infof - info message
func Infof(format string, args ...interface{}) {
	defaultLog.Infof(format, args...)
}

// Warn - warn message
func Warn(args ...interface{}) {
	defaultLog.Warn(args...)
}

// Warnf - warn message
func Warnf(format string, args ...interface{}) {
	defaultLog.Warnf(format, args...)
}
