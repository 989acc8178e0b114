// Package logging builds the diagnostic logger from the logging config.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Goraved/aqareport/internal/config"
)

// NewZap builds a zap logger writing to stderr.
func NewZap(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(Level(cfg.Level))
	return zapCfg.Build()
}

// Level maps a config level to a zap level. "debug" also enables logr
// V(2) messages.
func Level(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.Level(-2)
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New builds a logr logger backed by zap. The returned function flushes
// buffered entries.
func New(cfg config.LoggingConfig) (logr.Logger, func(), error) {
	z, err := NewZap(cfg)
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return zapr.NewLogger(z), func() { _ = z.Sync() }, nil
}
