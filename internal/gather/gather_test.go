package gather

import (
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

func TestTimeFrameMapping(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     marketdata.TimeFrame
	}{
		{30 * time.Minute, marketdata.NewTimeFrame(30, marketdata.Min)},
		{time.Minute, marketdata.OneMin},
		{2 * time.Hour, marketdata.NewTimeFrame(2, marketdata.Hour)},
		{24 * time.Hour, marketdata.OneDay},
		{time.Second, marketdata.OneMin},
	}
	for _, tt := range tests {
		g := &BarGatherer{interval: tt.interval}
		if got := g.timeFrame(); got != tt.want {
			t.Errorf("timeFrame(%v) = %+v, want %+v", tt.interval, got, tt.want)
		}
	}
}

func TestNewBarGathererDefaults(t *testing.T) {
	g := NewBarGatherer("key", "secret", "", nil, []string{"AAPL"},
		30*time.Minute, DateRange{}, 0, 0, 0)
	if g.batchSize != 100 {
		t.Errorf("batchSize = %d, want default 100", g.batchSize)
	}
	if g.maxWorkers != 4 {
		t.Errorf("maxWorkers = %d, want default 4", g.maxWorkers)
	}
	if g.Name() != "alpaca-bars" {
		t.Errorf("name = %q", g.Name())
	}
}
