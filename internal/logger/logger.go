package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger writing to stdout.
func New(level, format string) *zap.Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter builds a logger writing to w. Unknown formats fall back to json.
func NewWithWriter(level, format string, w io.Writer) *zap.Logger {
	var encoder zapcore.Encoder

	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		config := zap.NewProductionEncoderConfig()
		config.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(config)
	default:
		config := zap.NewProductionEncoderConfig()
		config.TimeKey = "time"
		config.EncodeTime = zapcore.RFC3339TimeEncoder
		encoder = zapcore.NewJSONEncoder(config)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), parseLevel(level))

	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
