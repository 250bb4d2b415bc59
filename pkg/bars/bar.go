// Package bars provides OHLCV bar series loading, merging, and resampling
// for backtesting.
package bars

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Bar represents OHLCV data for a single time interval
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Instrument identifies a tradable pair. Symbol is what the data source
// knows, e.g. the exchange symbol "BTCUSDT"; Quote is the quote currency.
type Instrument struct {
	Symbol string `json:"symbol"`
	Quote  string `json:"quote"`
}

// Pair returns the display pair notation, e.g. "BTC/USDT". An exchange
// symbol that carries the quote as a suffix is split; a bare base symbol
// is joined with the quote as is.
func (i Instrument) Pair() string {
	if i.Quote == "" {
		return i.Symbol
	}
	base := strings.TrimSuffix(i.Symbol, i.Quote)
	if base == "" {
		base = i.Symbol
	}
	return base + "/" + i.Quote
}

// Source loads an ordered bar series for a symbol.
// The range is half-open: bars with start <= timestamp < end.
type Source interface {
	Load(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// SortDedup sorts bars ascending by timestamp and drops duplicate
// timestamps, keeping the first occurrence.
func SortDedup(in []Bar) []Bar {
	if len(in) == 0 {
		return in
	}

	out := make([]Bar, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	deduped := out[:1]
	for _, b := range out[1:] {
		if b.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// Validate checks the series invariants: strictly increasing timestamps
// and positive price fields.
func Validate(series []Bar) error {
	for i, b := range series {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d at %s has non-positive price", i, b.Timestamp)
		}
		if i > 0 && !series[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("bar %d at %s is not strictly after its predecessor", i, b.Timestamp)
		}
	}
	return nil
}

// Clip returns the bars with start <= timestamp < end. The input must be
// sorted ascending.
func Clip(series []Bar, start, end time.Time) []Bar {
	lo := sort.Search(len(series), func(i int) bool {
		return !series[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(series), func(i int) bool {
		return !series[i].Timestamp.Before(end)
	})
	return series[lo:hi]
}
