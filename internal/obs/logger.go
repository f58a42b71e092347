package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger. Pretty mode switches to the
// human-readable development encoder; an unknown level falls back to info.
func NewLogger(level string, pretty bool, service string) (*zap.Logger, error) {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	parsed := new(zapcore.Level)
	if err := parsed.Set(level); err != nil {
		*parsed = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*parsed)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(zap.String("service", service)))
}
