package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
)

// WriteReturnsCSV writes the combined out-of-sample equity curve as
// timestamp, equity, return rows. The return column is the simple return
// against the previous row.
func WriteReturnsCSV(path string, combined []backtest.EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "equity", "return"}); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	prev := 0.0
	for i, p := range combined {
		ret := 0.0
		if i > 0 && prev != 0 {
			ret = p.Equity/prev - 1
		}
		prev = p.Equity

		row := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Equity, 'f', -1, 64),
			strconv.FormatFloat(ret, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return f.Close()
}
