// Package logging builds the logrus logger shared by the ledger, the vault
// and the command line tool.
package logging

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidLevel indicates the log level is not recognized.
var ErrInvalidLevel = errors.New("logging: invalid log level")

// Rotation limits for file output.
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 28
)

// Logger is a logrus logger that may own a rotating log file.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New creates a logger at level. When file is non-empty entries are written
// there as JSON and rotated by size; otherwise text goes to stderr.
func New(level, file string) (*Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}

	l := &Logger{Logger: logrus.New()}
	l.SetLevel(lvl)
	if file == "" {
		l.SetOutput(os.Stderr)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return l, nil
	}

	l.file = &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	l.SetOutput(l.file)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
