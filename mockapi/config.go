package mockapi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML server config.
//
//	tokens: [dev-token]
//	db: ./mock.db
//	api_addr: localhost:4000
//	welcome_addr: localhost:3000
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("mockapi: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("mockapi: parse config: %w", err)
	}
	return cfg, nil
}
