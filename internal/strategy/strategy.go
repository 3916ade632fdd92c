// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry mapping strategy identifiers to constructors, so each
// backtest run gets a fresh instance with no shared mutable state.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"ganymede/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
// Implementations may hold small internal state (cooldowns, daily counters);
// Reset must clear all of it so repeated runs are independent. A Strategy
// instance must never be shared across concurrently running backtests.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Prepare enriches the candle series with the indicator columns the
	// strategy consumes.
	Prepare(candles []domain.Candle) (*Frame, error)

	// Generate evaluates the series prefix ending at the current bar and
	// returns exactly one Signal. "No trade" conditions yield a Neutral
	// signal, never an error; errors are reserved for structurally invalid
	// input.
	Generate(candles []domain.Candle) (domain.Signal, error)

	// Reset clears all stateful counters for a fresh run.
	Reset()
}

// Factory constructs a strategy from its configuration. Construction fails
// with a ConfigurationError when parameters are invalid.
type Factory func(cfg Config) (Strategy, error)

// ConfigurationError reports invalid strategy parameters detected at
// construction time, before any bar is processed.
type ConfigurationError struct {
	Strategy string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("strategy %s: invalid configuration: %s", e.Strategy, e.Reason)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry holds a named collection of strategy factories for lookup and
// enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry under the given identifier.
func (r *Registry) Register(id string, f Factory) {
	r.factories[id] = f
}

// New constructs a fresh strategy instance by identifier.
func (r *Registry) New(id string, cfg Config) (Strategy, error) {
	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", id)
	}
	return f(cfg)
}

// Has reports whether the identifier is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.factories[id]
	return ok
}

// List returns a sorted slice of all registered strategy identifiers.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// Frame
// ---------------------------------------------------------------------------

// Frame is a candle series enriched with named indicator columns, each
// aligned to the candles. It is the output of Strategy.Prepare.
type Frame struct {
	Candles []domain.Candle
	cols    map[string][]float64
}

// NewFrame creates a Frame over the given candles with no columns.
func NewFrame(candles []domain.Candle) *Frame {
	return &Frame{
		Candles: candles,
		cols:    make(map[string][]float64),
	}
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Candles) }

// Set stores a named indicator column. Columns must be aligned to the
// candle series.
func (f *Frame) Set(name string, col []float64) {
	f.cols[name] = col
}

// Col returns the named column, or nil when absent.
func (f *Frame) Col(name string) []float64 {
	return f.cols[name]
}

// At returns the column value at index i, or NaN when the column is absent
// or the index is out of range.
func (f *Frame) At(name string, i int) float64 {
	col := f.cols[name]
	if col == nil || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Last returns the column value at the final bar.
func (f *Frame) Last(name string) float64 {
	return f.At(name, f.Len()-1)
}

// Prev returns the column value at the second-to-last bar.
func (f *Frame) Prev(name string) float64 {
	return f.At(name, f.Len()-2)
}
