package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/edem-agent/internal/domain"
)

// LoadMyth reads a myth override from a YAML file:
//
//	origin: "..."
//	fear: "..."
//	desire: "..."
//
// An empty path returns a zero MythContext, which agents fill from defaults.
func LoadMyth(path string) (domain.MythContext, error) {
	var myth domain.MythContext
	if path == "" {
		return myth, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return myth, fmt.Errorf("read myth file: %w", err)
	}
	if err := yaml.Unmarshal(data, &myth); err != nil {
		return myth, fmt.Errorf("parse myth file %s: %w", path, err)
	}
	return myth, nil
}
