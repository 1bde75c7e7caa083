package helpers

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger writing to output, a zap sink path
// such as "stderr" or a file, and installs it as the zap global.
func NewLogger(debug bool, output string) (*zap.SugaredLogger, error) {
	var z zap.Config
	if debug {
		// Development configuration with more verbose output
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
	}
	if output != "" {
		z.OutputPaths = []string{output}
	}

	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return logger.Sugar(), nil
}

// LoggerOrNop returns logger, or a no-op logger when it is nil.
func LoggerOrNop(logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
