package app

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/chronos/internal/config"
)

// NewDaemonLogger builds the production logger for `chronos run`, writing
// JSON lines to the configured log file. When the file cannot be opened it
// logs to stderr instead.
func NewDaemonLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logPath := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
		zc.OutputPaths = []string{logPath}
		zc.ErrorOutputPaths = []string{logPath}
	}

	logger, err := zc.Build()
	if err != nil {
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
		return zc.Build()
	}
	return logger, nil
}

// NewCLILogger builds the quiet logger used by one-shot commands.
func NewCLILogger() *zap.Logger {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
