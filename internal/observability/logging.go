package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/auth-service/internal/config"
)

// NewLogger creates the service logger. Every entry carries the service name
// and version. Tokens must never be passed to it; log fingerprints instead.
func NewLogger(cfg config.LoggerConfig, app config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	encoding := strings.ToLower(cfg.Format)
	switch encoding {
	case "":
		encoding = "json"
	case "json", "console":
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unsupported encoding %q", cfg.Format)
	}

	encoder := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "ts",
		CallerKey:     "caller",
		NameKey:       "logger",
		StacktraceKey: "stacktrace",
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeName:    zapcore.FullNameEncoder,
	}
	if encoding == "console" {
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       app.Env == "development",
		DisableStacktrace: app.Env != "development",
		Encoding:          encoding,
		EncoderConfig:     encoder,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields: map[string]interface{}{
			"service": app.Name,
			"version": app.Version,
		},
	}
	return zapCfg.Build()
}
