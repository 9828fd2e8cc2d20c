// Package logging builds the daemon's structured logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger writing timestamped JSON lines to logPath and stderr.
// An empty logPath logs to stderr only.
func New(logPath string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if logPath != "" {
		config.OutputPaths = append(config.OutputPaths, logPath)
	}

	return config.Build()
}
