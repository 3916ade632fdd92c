package strategy

import "fmt"

// Params is an open key/value parameter map. Unknown keys are
// strategy-specific; strategies fall back to documented defaults when a key
// is absent.
type Params map[string]any

// Float returns the named parameter as a float64, or def when absent or not
// numeric.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// Int returns the named parameter as an int, or def when absent or not
// numeric.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// Bool returns the named parameter as a bool, or def when absent or not a
// bool.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Config configures one strategy instance.
type Config struct {
	Name         string  `yaml:"name" json:"name"`
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	PositionSize float64 `yaml:"position_size" json:"position_size"` // fraction of capital, (0, 1]
	MaxPositions int     `yaml:"max_positions" json:"max_positions"`
	Params       Params  `yaml:"params" json:"params"`
}

// SetDefaults fills zero-valued fields with the documented defaults:
// position size 10%, one position.
func (c *Config) SetDefaults() {
	if c.PositionSize == 0 {
		c.PositionSize = 0.1
	}
	if c.MaxPositions == 0 {
		c.MaxPositions = 1
	}
	if c.Params == nil {
		c.Params = Params{}
	}
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return &ConfigurationError{
			Strategy: c.Name,
			Reason:   fmt.Sprintf("position_size must be in (0, 1], got %v", c.PositionSize),
		}
	}
	if c.MaxPositions < 1 {
		return &ConfigurationError{
			Strategy: c.Name,
			Reason:   fmt.Sprintf("max_positions must be >= 1, got %d", c.MaxPositions),
		}
	}
	return nil
}
