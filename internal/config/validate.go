package config

import "fmt"

// Validate checks structural invariants the loader cannot express through
// viper defaults alone: every source needs an id and an existing kind, and
// source ids must be unique (they namespace chunk ids).
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("source with path %q is missing an id", s.Path)
		}
		if s.Path == "" {
			return fmt.Errorf("source %q is missing a path", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		switch s.Kind {
		case "", "markdown", "code", "text":
		default:
			return fmt.Errorf("source %q has unknown kind %q", s.ID, s.Kind)
		}
	}
	if c.Chunk.Min <= 0 || c.Chunk.Target <= c.Chunk.Min || c.Chunk.Max <= c.Chunk.Target {
		return fmt.Errorf("chunk thresholds must satisfy 0 < min < target < max (got min=%d target=%d max=%d)",
			c.Chunk.Min, c.Chunk.Target, c.Chunk.Max)
	}
	return nil
}
