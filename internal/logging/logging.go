package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the harness logger. Output goes to stderr only: stdout of
// the test driver may be piped, and the subprocesses it manages use their
// stdout for the protocol channel.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// NewFileLogger mirrors NewLogger but additionally copies entries to the
// named file, matching the inspector binary's --log-file behavior.
func NewFileLogger(level, path string) (*logrus.Logger, error) {
	logger := NewLogger(level)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return logger, nil
}
