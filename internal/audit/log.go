// Package audit keeps the human-readable activity log served by /api/logs.
package audit

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrLogWrite is returned when an entry could not be persisted.
// Callers treat audit logging as best effort and never fail a request on it.
var ErrLogWrite = errors.New("audit log write failed")

// Log is an append-only file of timestamped entries.
// Past maxSizeMB the file is rotated and a single backup is kept.
type Log struct {
	mu     sync.Mutex
	path   string
	out    *lumberjack.Logger
	now    func() time.Time
	logger *zap.Logger
}

// Open opens (or creates) the log at path. maxSizeMB <= 0 uses the lumberjack default of 100 MB.
func Open(path string, maxSizeMB int, logger *zap.Logger) (*Log, error) {
	if path == "" {
		return nil, errors.New("audit log path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Log{
		path: path,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    max(maxSizeMB, 0),
			MaxBackups: 1,
		},
		now:    time.Now,
		logger: logger,
	}
	// An empty write creates the file so /api/logs works before the first entry.
	if _, err := l.out.Write(nil); err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return l, nil
}

// Append writes one entry formatted as "<RFC3339Nano UTC> - message".
func (l *Log) Append(message string) error {
	line := l.now().UTC().Format(time.RFC3339Nano) + " - " + message + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	// One Write per entry keeps lines whole for concurrent readers.
	if _, err := l.out.Write([]byte(line)); err != nil {
		l.logger.Warn("Failed to write audit entry", zap.String("path", l.path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrLogWrite, err)
	}
	return nil
}

// Appendf formats and appends an entry.
func (l *Log) Appendf(format string, args ...any) error {
	return l.Append(fmt.Sprintf(format, args...))
}

// Read returns the current log file contents. The rotated backup is not included.
func (l *Log) Read() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("read audit log: %w", err)
	}
	return string(data), nil
}

// Rotate moves the current file to a timestamped backup and starts a new one.
func (l *Log) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.out.Rotate(); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.out.Close()
}
