package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDirMode        = 0o700
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30
)

type Options struct {
	Level string
	// File switches output from the console to a rotated JSON log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds the process logger. The returned close function flushes and
// releases the log file, if any.
func New(opts Options, console io.Writer) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		parsed, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	path := strings.TrimSpace(opts.File)
	if path == "" {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(console), zap.NewAtomicLevelAt(level))
		logger := zap.New(core)
		return logger, func() error { return ignoreSyncError(logger.Sync()) }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), logDirMode); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    valueOr(opts.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: valueOr(opts.MaxBackups, defaultMaxBackups),
		MaxAge:     valueOr(opts.MaxAgeDays, defaultMaxAgeDays),
		Compress:   opts.Compress,
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), zap.NewAtomicLevelAt(level))
	logger := zap.New(core, zap.AddCaller())

	return logger, func() error {
		syncErr := ignoreSyncError(logger.Sync())
		if err := rotator.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		return syncErr
	}, nil
}

func valueOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// ignoreSyncError drops the EINVAL/ENOTTY that fsync returns for terminals
// and pipes.
func ignoreSyncError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "invalid argument") || strings.Contains(err.Error(), "inappropriate ioctl") {
		return nil
	}
	return err
}
