package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileValues holds the flat key/value pairs read from GLIMPSE_CONFIG_FILE.
var fileValues map[string]string

// loadFile reads a flat YAML mapping whose keys are the env var names:
//
//	GLIMPSE_WEBHOOK_URL: https://n8n.domain.ext/webhook/identify
//	GLIMPSE_LOG_LEVEL: debug
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	return values, nil
}
