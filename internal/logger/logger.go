package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger; it is a no-op until Init runs.
var Log = zap.NewNop()

// New builds a logger writing encoding ("json" or "console") at level.
// Unknown levels fall back to info.
func New(level, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zap.InfoLevel
	}
	if encoding != "console" {
		encoding = "json"
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(lvl),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    enc,
	}
	return cfg.Build()
}

// Init initializes the global logger.
func Init(level, encoding string) *zap.Logger {
	l, err := New(level, encoding)
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// Firm returns the fields every per-firm log line carries.
func Firm(firmID int64, schema string) []zap.Field {
	return []zap.Field{zap.Int64("firm_id", firmID), zap.String("schema", schema)}
}
