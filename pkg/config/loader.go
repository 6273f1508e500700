package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables using `env` struct tags.
// Defaults come from envDefault tags; durations use Go duration syntax, so a
// tag like `env:"SESSION_MAX_AGE" envDefault:"168h"` parses directly into a
// time.Duration field.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
