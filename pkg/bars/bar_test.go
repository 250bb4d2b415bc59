package bars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(minute int, close float64) Bar {
	ts := time.Date(2021, 1, 1, 0, minute, 0, 0, time.UTC)
	return Bar{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestSortDedupOrdersAndKeepsFirst(t *testing.T) {
	in := []Bar{bar(2, 102), bar(0, 100), bar(1, 101), {Timestamp: bar(1, 0).Timestamp, Open: 999, High: 999, Low: 999, Close: 999, Volume: 1}}

	out := SortDedup(in)
	require.Len(t, out, 3)
	assert.Equal(t, 100.0, out[0].Close)
	// First occurrence of the duplicated timestamp wins.
	assert.Equal(t, 101.0, out[1].Close)
	assert.Equal(t, 102.0, out[2].Close)
}

func TestSortDedupLeavesInputAlone(t *testing.T) {
	in := []Bar{bar(1, 101), bar(0, 100)}
	_ = SortDedup(in)
	assert.Equal(t, 101.0, in[0].Close)
}

func TestValidateRejectsNonPositivePrice(t *testing.T) {
	series := []Bar{bar(0, 100), {Timestamp: bar(1, 0).Timestamp, Open: 0, High: 1, Low: 1, Close: 1, Volume: 1}}
	assert.Error(t, Validate(series))
}

func TestValidateRejectsNonIncreasing(t *testing.T) {
	series := []Bar{bar(1, 100), bar(0, 99)}
	assert.Error(t, Validate(series))
	assert.NoError(t, Validate(SortDedup(series)))
}

func TestClipHalfOpen(t *testing.T) {
	series := []Bar{bar(0, 100), bar(1, 101), bar(2, 102), bar(3, 103)}

	out := Clip(series, bar(1, 0).Timestamp, bar(3, 0).Timestamp)
	require.Len(t, out, 2)
	assert.Equal(t, 101.0, out[0].Close)
	assert.Equal(t, 102.0, out[1].Close)
}

func TestInstrumentPair(t *testing.T) {
	assert.Equal(t, "ETH/USDT", Instrument{Symbol: "ETH", Quote: "USDT"}.Pair())
	assert.Equal(t, "BTC/USDT", Instrument{Symbol: "BTCUSDT", Quote: "USDT"}.Pair())
	assert.Equal(t, "BTCUSDT", Instrument{Symbol: "BTCUSDT"}.Pair())
}
