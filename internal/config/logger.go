package config

import "go.uber.org/zap"

// NewLogger builds a zap logger: production JSON output, or the development
// console encoder when Development is set, at the configured level.
func (c LoggingConfig) NewLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if c.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
