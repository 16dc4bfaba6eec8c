package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys shared by every component.
const (
	KeyService = "service"
	KeyWallet  = "wallet_id"
)

const serviceName = "hot-swap-bot"

// NewLogger builds the process logger. "json" selects the production encoder
// without sampling; anything else the development one.
func NewLogger(level string, format string) (*zap.Logger, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.InitialFields = map[string]interface{}{KeyService: serviceName}

	return cfg.Build()
}

// ForWallet returns a child logger tagged with the wallet id.
func ForWallet(l *zap.Logger, walletID string) *zap.Logger {
	return l.With(zap.String(KeyWallet, walletID))
}
