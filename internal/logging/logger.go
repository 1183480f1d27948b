package logging

import (
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tune the process logger.
type Options struct {
	// File is the log file name inside the log directory.
	File string
	// Stdout tees a human-readable copy of every entry to stdout.
	Stdout bool
	Level  zapcore.Level
}

// NewLogger writes JSON lines to a rotated file under logDir.
func NewLogger(logDir string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	if opts.File == "" {
		opts.File = "uptime.log"
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, opts.File),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, opts.Level)

	if opts.Stdout {
		ccfg := zap.NewDevelopmentEncoderConfig()
		ccfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		if isatty.IsTerminal(os.Stdout.Fd()) {
			ccfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		console := zapcore.NewCore(zapcore.NewConsoleEncoder(ccfg), zapcore.Lock(os.Stdout), opts.Level)
		core = zapcore.NewTee(core, console)
	}
	return zap.New(core), nil
}
