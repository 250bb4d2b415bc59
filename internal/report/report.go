// Package report renders a walk-forward run as human-readable text and
// CSV artifacts.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/walkforward"
)

const dateLayout = "2006-01-02"

// Write renders the full text report: a combined out-of-sample summary
// followed by one block per window.
func Write(w io.Writer, res *walkforward.Result) error {
	combined := backtest.Analyze(res.Combined(), res.Trades())

	header(w, fmt.Sprintf("WALK-FORWARD REPORT  %s", res.Instrument.Pair()))
	fmt.Fprintf(w, "Windows completed:   %d\n", len(res.Windows))
	fmt.Fprintf(w, "Windows skipped:     %d\n", len(res.Skipped))
	fmt.Fprintf(w, "Initial cash:        %.2f\n", res.InitialCash)
	fmt.Fprintf(w, "Final equity:        %.2f\n", res.FinalEquity)
	fmt.Fprintln(w)

	header(w, "COMBINED OUT-OF-SAMPLE")
	writeScore(w, combined)
	fmt.Fprintln(w)

	for i, wr := range res.Windows {
		header(w, fmt.Sprintf("WINDOW %d  %s", i+1, wr.Window))
		fmt.Fprintf(w, "Parameters:          %s\n", formatParams(wr.Params))
		fmt.Fprintf(w, "Train score:         %.4f\n", wr.TrainScore)
		fmt.Fprintf(w, "Start cash:          %.2f\n", wr.StartCash)
		fmt.Fprintf(w, "End equity:          %.2f\n", wr.EndEquity)
		writeScore(w, wr.TestScore)
		fmt.Fprintln(w)
	}

	for _, skipped := range res.Skipped {
		fmt.Fprintf(w, "skipped (no data): %s\n", skipped)
	}
	return nil
}

// SaveToFile writes the text report to path.
func SaveToFile(path string, res *walkforward.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	if err := Write(f, res); err != nil {
		return err
	}
	return f.Close()
}

func header(w io.Writer, title string) {
	rule := strings.Repeat("=", 64)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
}

func writeScore(w io.Writer, s backtest.Score) {
	fmt.Fprintf(w, "Composite score:     %.4f\n", s.Composite)
	fmt.Fprintf(w, "Viable:              %t\n", s.Viable)
	fmt.Fprintf(w, "SQN:                 %.4f\n", s.SQN)
	fmt.Fprintf(w, "Sharpe:              %.4f\n", s.Sharpe)
	fmt.Fprintf(w, "Sortino:             %.4f\n", s.Sortino)
	fmt.Fprintf(w, "Exposure:            %.2f%%\n", s.Exposure*100)
	fmt.Fprintf(w, "Total return:        %.2f%%\n", s.TotalReturnPct)
	fmt.Fprintf(w, "Max drawdown:        %.2f%%\n", s.MaxDrawdownPct)
	fmt.Fprintf(w, "Trades:              %d\n", s.TradeCount)
}

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, ", ")
}
