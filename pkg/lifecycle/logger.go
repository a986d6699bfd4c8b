// Package lifecycle wires together process-wide setup (logging today)
// that every entry point under cmd/ needs identically.
package lifecycle

import (
	"fmt"

	"github.com/brewlink/relay/pkg/logger"
)

// InitializeLogger initializes the global logger from cfg, falling back
// to logger.DefaultConfig when cfg is nil.
func InitializeLogger(cfg *logger.Config) error {
	if cfg == nil {
		cfg = logger.DefaultConfig()
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// CreateComponentLogger returns the package-level logger scoped to component.
func CreateComponentLogger(component string) logger.Logger {
	return logger.New(logger.WithComponent(component))
}
