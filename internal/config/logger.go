package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger matching Env and LogLevel.
func (c Config) NewLogger() (*zap.Logger, error) { return newLogger(c.LogLevel, c.Env) }

func (c BotConfig) NewLogger() (*zap.Logger, error) { return newLogger(c.LogLevel, c.Env) }

func newLogger(logLevel, env string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if env == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
