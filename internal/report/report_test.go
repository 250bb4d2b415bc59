package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
	"github.com/ajitpratap0/walkforward/pkg/walkforward"
)

func sampleResult() *walkforward.Result {
	start := time.Date(2021, 1, 7, 0, 0, 0, 0, time.UTC)
	segment := []backtest.EquityPoint{
		{Timestamp: start, Equity: 1000, Cash: 1000},
		{Timestamp: start.Add(time.Hour), Equity: 1010, Cash: 510, Holdings: 500},
		{Timestamp: start.Add(2 * time.Hour), Equity: 1025, Cash: 1025},
	}

	return &walkforward.Result{
		Instrument:  bars.Instrument{Symbol: "BTCUSDT", Quote: "USDT"},
		InitialCash: 1000,
		FinalEquity: 1025,
		Windows: []walkforward.WindowResult{
			{
				Window: walkforward.Window{
					TrainStart: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
					TrainEnd:   time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC),
					TestStart:  start,
					TestEnd:    time.Date(2021, 1, 13, 0, 0, 0, 0, time.UTC),
				},
				Params:     optimize.ParamSet{"fast": 5, "slow": 20},
				TrainScore: 3.21,
				StartCash:  1000,
				EndEquity:  1025,
				Segment:    segment,
				Trades:     []backtest.Trade{{NetPnL: 25}},
			},
		},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "WALK-FORWARD REPORT  BTC/USDT")
	assert.Contains(t, out, "COMBINED OUT-OF-SAMPLE")
	assert.Contains(t, out, "WINDOW 1")
	assert.Contains(t, out, "fast=5, slow=20")
	assert.Contains(t, out, "Final equity:        1025.00")
	assert.Contains(t, out, "Train score:         3.2100")
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, SaveToFile(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WALK-FORWARD REPORT")
}

func TestWriteReturnsCSV(t *testing.T) {
	res := sampleResult()
	path := filepath.Join(t.TempDir(), "returns.csv")
	require.NoError(t, WriteReturnsCSV(path, res.Combined()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "timestamp,equity,return", lines[0])
	assert.Contains(t, lines[1], "2021-01-07T00:00:00Z")
	assert.Contains(t, lines[1], ",1000,0")
	// 1010/1000 - 1
	assert.Contains(t, lines[2], "0.01")
}
