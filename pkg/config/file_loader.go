package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileLoader loads configuration from a local JSON file.
type FileLoader struct{}

// Load implements reading and unmarshaling a JSON file into dst.
func (*FileLoader) Load(_ context.Context, path string, dst interface{}) error {
	if path == "" {
		return ErrEmptyConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %q: %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from %q: %w", path, err)
	}

	return nil
}
