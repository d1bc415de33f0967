package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses a duration setting, falling back to the
// compiled-in default when the configured value is empty. Timeouts are
// kept as strings in Config so YAML, env and flag values share one shape.
func DurationOrDefault(value, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}
