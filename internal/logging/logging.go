package logging

import (
	"fmt"

	"github.com/indigo-web/serverio/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger out of the config: JSON output for the production preset and a
// human-readable console one for development.
func New(cfg config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("bad log level: %w", err)
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format: %q", cfg.Format)
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
