// Package fetch pulls historical 1m klines from the exchange and lands
// them in the local bar store layout.
package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/walkforward/pkg/bars"
)

// Fetcher retrieves minute bars for a half-open time range.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]bars.Bar, error)
}

const (
	klineInterval = "1m"
	klineLimit    = 1000
)

// Binance fetches klines through the public REST API. Public market data
// needs no credentials; the limiter keeps pagination under the request
// weight budget.
type Binance struct {
	client  *binance.Client
	limiter *rate.Limiter
	retry   RetryConfig
}

func NewBinance() *Binance {
	return &Binance{
		client:  binance.NewClient("", ""),
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		retry:   DefaultRetryConfig(),
	}
}

// Fetch pages through the klines endpoint until end is reached. The range
// is half-open: bars with start <= open time < end.
func (b *Binance) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]bars.Bar, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("fetch: invalid range %s..%s", start, end)
	}

	log.Info().
		Str("symbol", symbol).
		Time("start", start).
		Time("end", end).
		Msg("Fetching klines")

	var out []bars.Bar
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor < endMs {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var klines []*binance.Kline
		err := withRetry(ctx, b.retry, func() error {
			var kerr error
			klines, kerr = b.client.NewKlinesService().
				Symbol(symbol).
				Interval(klineInterval).
				StartTime(cursor).
				EndTime(endMs - 1).
				Limit(klineLimit).
				Do(ctx)
			return kerr
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s klines: %w", symbol, err)
		}
		if len(klines) == 0 {
			break
		}

		chunk, err := convertKlines(klines)
		if err != nil {
			return nil, fmt.Errorf("fetch %s klines: %w", symbol, err)
		}
		out = append(out, chunk...)

		// Next page begins one interval after the last open time.
		cursor = klines[len(klines)-1].OpenTime + time.Minute.Milliseconds()
		log.Debug().
			Str("symbol", symbol).
			Int("page", len(klines)).
			Int("total", len(out)).
			Msg("Fetched kline page")
	}

	series := bars.Clip(bars.SortDedup(out), start, end)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", bars.ErrDataNotFound,
			symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return series, nil
}

// convertKlines maps exchange klines, whose prices arrive as strings, into
// bars.
func convertKlines(klines []*binance.Kline) ([]bars.Bar, error) {
	out := make([]bars.Bar, 0, len(klines))
	for _, k := range klines {
		bar := bars.Bar{Timestamp: time.UnixMilli(k.OpenTime).UTC()}

		var err error
		if bar.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
			return nil, fmt.Errorf("bad open %q: %w", k.Open, err)
		}
		if bar.High, err = strconv.ParseFloat(k.High, 64); err != nil {
			return nil, fmt.Errorf("bad high %q: %w", k.High, err)
		}
		if bar.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
			return nil, fmt.Errorf("bad low %q: %w", k.Low, err)
		}
		if bar.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
			return nil, fmt.Errorf("bad close %q: %w", k.Close, err)
		}
		if bar.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
			return nil, fmt.Errorf("bad volume %q: %w", k.Volume, err)
		}
		out = append(out, bar)
	}
	return out, nil
}

// SaveDays fetches a range and writes it into store's day-chunk layout, the
// shape the file provider reads back.
func SaveDays(ctx context.Context, f Fetcher, store *bars.FileStore, symbol string, start, end time.Time) error {
	series, err := f.Fetch(ctx, symbol, start, end)
	if err != nil {
		return err
	}
	if err := store.WriteDays(symbol, series); err != nil {
		return err
	}
	log.Info().
		Str("symbol", symbol).
		Int("bars", len(series)).
		Str("dir", store.Dir).
		Msg("Saved day chunks")
	return nil
}
