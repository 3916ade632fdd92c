package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"ganymede/internal/domain"
)

// Compile-time interface check.
var _ CandleStore = (*ParquetStore)(nil)

// ParquetStore implements CandleStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// CandleRecord is the Parquet schema for candle data.
type CandleRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// WriteCandles writes candles to Parquet files organized by symbol and year,
// merging with any records already on disk. Each symbol+year combination
// produces a separate file at:
//
//	<DataDir>/candles/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteCandles(_ context.Context, symbol string, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	groups := make(map[int][]CandleRecord)
	for _, c := range candles {
		year := c.Timestamp.Year()
		groups[year] = append(groups[year], CandleRecord{
			Symbol:    strings.ToUpper(symbol),
			Timestamp: c.Timestamp.UnixMilli(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}

	for year, records := range groups {
		path := s.candlePath(symbol, year)

		// Read existing records to merge.
		existing, _ := readParquetFile[CandleRecord](path)
		merged := mergeCandleRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing candles for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadCandles reads candles for the given symbol and time range, ordered by
// timestamp. Missing year files are skipped.
func (s *ParquetStore) ReadCandles(_ context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	var candles []domain.Candle
	for year := start.Year(); year <= end.Year(); year++ {
		records, err := readParquetFile[CandleRecord](s.candlePath(symbol, year))
		if err != nil {
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			candle, err := domain.NewCandle(ts, r.Open, r.High, r.Low, r.Close, r.Volume)
			if err != nil {
				return nil, fmt.Errorf("stored candle %s at %s: %w", symbol, ts, err)
			}
			candles = append(candles, candle)
		}
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

// ListSymbols lists all symbols that have candle data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "candles"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// candlePath returns the filesystem path for a candle Parquet file.
// Layout: <dataDir>/candles/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) candlePath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "candles", strings.ToUpper(symbol),
		fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeCandleRecords deduplicates records by (symbol, timestamp), preferring
// new records over existing ones. Results are sorted by timestamp.
func mergeCandleRecords(existing, incoming []CandleRecord) []CandleRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
