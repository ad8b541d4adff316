// Package logging configures the process-wide logrus logger from LoggingConfig.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
)

// Fields is an alias so callers need not import logrus for structured fields.
type Fields = logrus.Fields

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
	defaultFilename   = "codeseq.log"
)

// Setup applies level, formatter and output to the standard logrus logger.
// The returned closer releases the rotating file when output is "file".
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	formatter, err := newFormatter(cfg.Format)
	if err != nil {
		return nil, err
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case "file":
		lj, err := newRotatingFile(cfg)
		if err != nil {
			return nil, err
		}
		out = lj
		closer = &fileCloser{lj: lj}
	default:
		return nil, fmt.Errorf("unsupported log output %q", cfg.Output)
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	logrus.SetOutput(out)
	return closer, nil
}

// ParseLevel maps a config level string to a logrus level; empty means info.
func ParseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	if strings.EqualFold(s, "warning") {
		return logrus.WarnLevel, nil
	}
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}, nil
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}, nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

func newRotatingFile(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	dir := cfg.File.Path
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := cfg.File.Filename
	if name == "" {
		name = defaultFilename
	}
	maxSize := cfg.File.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := cfg.File.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     cfg.File.MaxAge,
		Compress:   cfg.File.Compress,
	}, nil
}

// WithComponent returns an entry tagged with the emitting component.
func WithComponent(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// WithComponentAndFields is WithComponent plus extra fields.
func WithComponentAndFields(component string, fields Fields) *logrus.Entry {
	return WithComponent(component).WithFields(fields)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type fileCloser struct {
	lj     *lumberjack.Logger
	closed int32
}

func (c *fileCloser) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	logrus.SetOutput(os.Stderr)
	return c.lj.Close()
}
