package bars

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Column aliases accepted for the timestamp field. Data dumped by older
// fetchers uses candle_begin_time; exchange exports use datetime.
var timestampAliases = []string{"timestamp", "datetime", "candle_begin_time", "mts"}

var requiredColumns = []string{"open", "high", "low", "close", "volume"}

type csvLayout struct {
	timestamp int
	open      int
	high      int
	low       int
	close     int
	volume    int
}

func resolveLayout(file string, header []string) (csvLayout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	layout := csvLayout{timestamp: -1}
	for _, alias := range timestampAliases {
		if i, ok := index[alias]; ok {
			layout.timestamp = i
			break
		}
	}
	if layout.timestamp < 0 {
		return layout, &SchemaError{File: file, Detail: "no timestamp column (accepted: " + strings.Join(timestampAliases, ", ") + ")"}
	}

	cols := map[string]*int{
		"open":   &layout.open,
		"high":   &layout.high,
		"low":    &layout.low,
		"close":  &layout.close,
		"volume": &layout.volume,
	}
	for _, name := range requiredColumns {
		i, ok := index[name]
		if !ok {
			return layout, &SchemaError{File: file, Detail: "missing required column " + name}
		}
		*cols[name] = i
	}
	return layout, nil
}

// parseTimestamp accepts RFC3339, a plain datetime, a date, or epoch
// milliseconds. All values are interpreted as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// ReadCSV parses one CSV chunk into bars. Extra columns (openinterest and
// friends) are ignored. The rows are returned in file order.
func ReadCSV(r io.Reader, file string) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header of %s: %w", file, err)
	}

	layout, err := resolveLayout(file, header)
	if err != nil {
		return nil, err
	}

	var out []Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row of %s: %w", file, err)
		}

		ts, err := parseTimestamp(record[layout.timestamp])
		if err != nil {
			return nil, &SchemaError{File: file, Detail: err.Error()}
		}

		bar := Bar{Timestamp: ts}
		for _, field := range []struct {
			idx int
			dst *float64
		}{
			{layout.open, &bar.Open},
			{layout.high, &bar.High},
			{layout.low, &bar.Low},
			{layout.close, &bar.Close},
			{layout.volume, &bar.Volume},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[field.idx]), 64)
			if err != nil {
				return nil, &SchemaError{File: file, Detail: fmt.Sprintf("bad numeric value %q", record[field.idx])}
			}
			*field.dst = v
		}
		out = append(out, bar)
	}
	return out, nil
}

// ReadCSVFile reads and parses a single bar chunk from disk.
func ReadCSVFile(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, path)
}

// WriteCSV writes bars in the canonical chunk format.
func WriteCSV(w io.Writer, series []Bar) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range series {
		record := []string{
			b.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile atomically writes a bar chunk: write to a temp file in the
// same directory, then rename over the target. Concurrent readers never
// observe a partial file.
func WriteCSVFile(path string, series []Bar) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bars-*.csv")
	if err != nil {
		return fmt.Errorf("create temp chunk: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, series); err != nil {
		tmp.Close()
		return fmt.Errorf("write chunk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
