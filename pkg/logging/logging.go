// Package logging configures the run-scoped logger. Global state is kept
// to the minimum spec.md §9 allows: logger configuration is initialized
// once per run and torn down on exit.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger that writes structured entries to stderr
// and to logPath (workspace/logs/archiver.log by convention), rotating
// logPath when it exceeds maxBytes. Size-based rotation is hand-rolled
// here (see rotate.go) because no rotation library appears anywhere in
// the retrieval pack this module was grounded on.
func New(logPath string, level logrus.Level) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if logPath == "" {
		logger.SetOutput(os.Stderr)
		return logger, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, err
	}

	w, err := newRotatingWriter(logPath, defaultMaxBytes, defaultKeep)
	if err != nil {
		return nil, err
	}

	logger.SetOutput(io.MultiWriter(os.Stderr, w))
	return logger, nil
}

// ForComponent returns an entry pre-tagged with the component name, the
// convention used throughout the pipeline ("component", "story",
// "chapter_url" fields).
func ForComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}
