// Package logger provides opinionated logging capabilities for the anthrelay system
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(os.Stdout), debug)
}

// NewStderrLogger logs to stderr. Used by the interactive chat command,
// which owns stdout for the terminal UI.
func NewStderrLogger(debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(os.Stderr), debug)
}

func newLogger(sink zapcore.WriteSyncer, debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		sink,
		level,
	)

	return zap.New(core, zap.AddCaller())
}
