package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger to provide structured logging
type Logger struct {
	*zap.Logger
}

// Options controls where and how the logger writes
type Options struct {
	Environment string
	LogDir      string
}

// New creates a new logger instance based on the environment
func New(opts Options) *Logger {
	logDir := opts.LogDir
	if logDir == "" {
		logDir = "logs"
	}

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		os.Stderr.WriteString("Failed to create log directory: " + err.Error() + "\n")
		os.Exit(1)
	}

	// File output is always JSON without colors
	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		levelCore(fileEncoderConfig, filepath.Join(logDir, "info.log"), zapcore.InfoLevel),
		levelCore(fileEncoderConfig, filepath.Join(logDir, "warn.log"), zapcore.WarnLevel),
		levelCore(fileEncoderConfig, filepath.Join(logDir, "error.log"), zapcore.ErrorLevel),
	)

	if opts.Environment == "production" {
		// Containers collect stdout, keep it structured
		core = zapcore.NewTee(
			core,
			zapcore.NewCore(
				zapcore.NewJSONEncoder(fileEncoderConfig),
				zapcore.Lock(os.Stdout),
				zapcore.InfoLevel,
			),
		)
	} else {
		consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
		consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

		core = zapcore.NewTee(
			core,
			levelCore(fileEncoderConfig, filepath.Join(logDir, "debug.log"), zapcore.DebugLevel),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(consoleEncoderConfig),
				zapcore.Lock(os.Stdout),
				zapcore.DebugLevel,
			),
		)
	}

	// Build the logger
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{
		Logger: logger,
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// levelCore writes entries at or above level into a rotated file
func levelCore(encCfg zapcore.EncoderConfig, filename string, level zapcore.Level) zapcore.Core {
	writer := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 30,
		MaxAge:     30, // days
		Compress:   true,
	}

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(writer),
		level,
	)
}

// Named returns a named logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger: l.Logger.Named(name),
	}
}

// With creates a child logger with the given fields
func (l *Logger) With(fields ...zapcore.Field) *Logger {
	return &Logger{
		Logger: l.Logger.With(fields...),
	}
}

// Sugar returns a sugared logger
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.Logger.Sugar()
}
