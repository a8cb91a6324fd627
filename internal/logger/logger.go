// Package logger builds the zap logger shared by the commands.
package logger

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service is attached to every entry.
const Service = "revenue-report"

// RunIDKey names the field that tags every entry of one invocation.
const RunIDKey = "run_id"

// New builds a logger writing to w at level ("debug", "info", ...). format is
// "json" or "console". Reports go to stdout, so callers normally pass stderr.
func New(level, format string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.MessageKey = "msg"

	var encoder zapcore.Encoder
	switch format {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	core := zapcore.NewCore(encoder, w, zapLevel)
	return zap.New(core, zap.AddCaller()).With(
		zap.String("service", Service),
		zap.String(RunIDKey, uuid.NewString()),
	), nil
}
