package observe

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// OutputConfig selects where log entries are written.
type OutputConfig struct {
	// Path is "stderr", "stdout" or a file path. File output is rotated.
	// Default: "stderr"
	Path string

	// MaxSizeMB is the size at which a log file is rotated.
	// Default: 100
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept (0 keeps all).
	MaxBackups int

	// MaxAgeDays is the age after which rotated files are removed (0 keeps all).
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// OpenOutput opens the configured log destination.
// Closing the result for stdout/stderr is a no-op.
func OpenOutput(cfg OutputConfig) (io.WriteCloser, error) {
	switch cfg.Path {
	case "", "stderr":
		return nopCloser{os.Stderr}, nil
	case "stdout":
		return nopCloser{os.Stdout}, nil
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
