// Package log provides a thread-safe, structured logging infrastructure with optional filesystem-based persistence.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Fields is an alias so callers do not need to import logrus directly.
type Fields = logrus.Fields

// Entry is a log entry carrying fields.
type Entry = logrus.Entry

// Setup initializes the logging subsystem, including output, formatting, and severity level based on global configuration.
// Logs always reach stderr; with logs.write enabled they are also appended to a daily file.
func Setup() error {
	var out io.Writer = os.Stderr

	if viper.GetBool(key.LogsWrite) {
		dir := where.Logs()
		if dir == "" {
			return errors.New("log directory path is empty")
		}

		path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
		f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}

		out = io.MultiWriter(os.Stderr, f)
	}

	logrus.SetOutput(out)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	return nil
}

// WithFields returns an entry carrying structured context.
func WithFields(fields Fields) *logrus.Entry {
	return logrus.WithFields(fields)
}

// WithError returns an entry carrying err under the standard "error" field.
func WithError(err error) *logrus.Entry {
	return logrus.WithError(err)
}

// Severity-Specific Log Emissions - these functions proxy messages to the configured backend.

func Fatal(args ...interface{}) {
	logrus.Fatal(args...)
}
func Fatalf(format string, args ...interface{}) {
	logrus.Fatalf(format, args...)
}
func Error(args ...interface{}) {
	logrus.Error(args...)
}
func Errorf(format string, args ...interface{}) {
	logrus.Errorf(format, args...)
}
func Warn(args ...interface{}) {
	logrus.Warn(args...)
}
func Warnf(format string, args ...interface{}) {
	logrus.Warnf(format, args...)
}
func Info(args ...interface{}) {
	logrus.Info(args...)
}
func Infof(format string, args ...interface{}) {
	logrus.Infof(format, args...)
}
func Debug(args ...interface{}) {
	logrus.Debug(args...)
}
func Debugf(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}
