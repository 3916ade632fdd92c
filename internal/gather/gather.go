// Package gather fetches candle history from the market-data provider into
// the local store.
package gather

import (
	"context"
	"time"
)

// Gatherer is the interface for data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run fetches the configured range and blocks until done or ctx is
	// cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}
