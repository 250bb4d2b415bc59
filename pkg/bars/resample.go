package bars

import "time"

// Resample aggregates a fine-grained series into coarser buckets of the
// given step: open=first, high=max, low=min, close=last, volume=sum.
// Buckets are aligned to the step in UTC. Input must be sorted ascending.
// A step at or below the source granularity returns the input unchanged.
func Resample(series []Bar, step time.Duration) []Bar {
	if len(series) == 0 || step <= 0 {
		return series
	}

	var out []Bar
	var current Bar
	var bucket time.Time
	open := false

	for _, b := range series {
		key := b.Timestamp.UTC().Truncate(step)
		if !open || !key.Equal(bucket) {
			if open {
				out = append(out, current)
			}
			bucket = key
			current = Bar{
				Timestamp: key,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			}
			open = true
			continue
		}

		if b.High > current.High {
			current.High = b.High
		}
		if b.Low < current.Low {
			current.Low = b.Low
		}
		current.Close = b.Close
		current.Volume += b.Volume
	}
	if open {
		out = append(out, current)
	}
	return out
}

// ParseTimeframe maps the exchange shorthand (1m, 5m, 1h, 4h, 1d) to a
// resample step.
func ParseTimeframe(tf string) (time.Duration, bool) {
	switch tf {
	case "1m":
		return time.Minute, true
	case "3m":
		return 3 * time.Minute, true
	case "5m":
		return 5 * time.Minute, true
	case "15m":
		return 15 * time.Minute, true
	case "30m":
		return 30 * time.Minute, true
	case "1h":
		return time.Hour, true
	case "2h":
		return 2 * time.Hour, true
	case "4h":
		return 4 * time.Hour, true
	case "1d":
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}
