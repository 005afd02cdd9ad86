// Package logging builds the diagnostic logger. The terminal belongs to the
// TUI, so records go to a file as JSON.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidLevel is returned for an unknown level name.
var ErrInvalidLevel = errors.New("logging: invalid level")

// Options configure New.
type Options struct {
	// Path is the log file. Empty disables logging.
	Path string
	// Level is debug, info, warn or error. Empty means info.
	Level string
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return lvl, nil
}

// New returns a JSON file logger and a function that flushes and closes it.
func New(opts Options) (*zap.Logger, func() error, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.Path == "" {
		return Nop(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	core := zapcore.NewCore(newEncoder(), zapcore.Lock(f), lvl)
	logger := zap.New(core, zap.AddCaller())
	closeFn := func() error {
		if err := logger.Sync(); err != nil && !isSyncNoise(err) {
			// Best-effort close; the sync error is the one worth reporting.
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return logger, closeFn, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// isSyncNoise reports sync errors returned by files that cannot be synced.
func isSyncNoise(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
