package app

import (
	"github.com/vk/blockflow/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config = config.Settings

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
