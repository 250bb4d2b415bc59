package bars

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore loads bar series from per-day CSV chunks laid out as
//
//	<dir>/<YYYY-MM-DD>/<YYYY-MM-DD>_<SYMBOL>_1m.csv
//
// A pre-merged range file <dir>/<SYMBOL>_<start>_<end>_1m.csv is preferred
// when present. Missing individual days are logged and skipped; a range
// with no data at all is ErrDataNotFound.
type FileStore struct {
	Dir string

	// PersistMerged writes the merged series back as a range file so the
	// next load over the same range skips the per-day scan. Cache only;
	// losing it costs time, not correctness.
	PersistMerged bool
}

const dateLayout = "2006-01-02"

func (s *FileStore) mergedPath(symbol string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_%s_1m.csv", symbol, start.Format(dateLayout), end.Format(dateLayout))
	return filepath.Join(s.Dir, name)
}

func (s *FileStore) dayPath(symbol string, day time.Time) string {
	d := day.Format(dateLayout)
	return filepath.Join(s.Dir, d, fmt.Sprintf("%s_%s_1m.csv", d, symbol))
}

// Load implements Source. Bars with start <= timestamp < end are returned
// sorted ascending with duplicate timestamps removed (first occurrence wins).
func (s *FileStore) Load(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("bars: invalid range %s..%s", start, end)
	}

	if merged, err := s.loadMerged(symbol, start, end); err != nil {
		return nil, err
	} else if merged != nil {
		return merged, nil
	}

	var collected []Bar
	missing := 0
	for day := start.UTC().Truncate(24 * time.Hour); day.Before(end); day = day.Add(24 * time.Hour) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := s.dayPath(symbol, day)
		chunk, err := ReadCSVFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			missing++
			log.Warn().Str("symbol", symbol).Str("file", path).Msg("Day chunk missing, skipping")
			continue
		case err != nil:
			return nil, err
		}
		collected = append(collected, chunk...)
	}

	series := Clip(SortDedup(collected), start, end)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrDataNotFound, symbol, start.Format(dateLayout), end.Format(dateLayout))
	}
	if err := Validate(series); err != nil {
		return nil, &SchemaError{File: s.Dir, Detail: err.Error()}
	}

	log.Info().
		Str("symbol", symbol).
		Int("bars", len(series)).
		Int("missing_days", missing).
		Time("first", series[0].Timestamp).
		Time("last", series[len(series)-1].Timestamp).
		Msg("Loaded bar series")

	if s.PersistMerged {
		path := s.mergedPath(symbol, start, end)
		if err := WriteCSVFile(path, series); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Failed to persist merged series")
		}
	}
	return series, nil
}

// WriteDays splits a series into UTC calendar days and writes each as a
// day chunk in the store layout. Existing chunks are replaced whole.
func (s *FileStore) WriteDays(symbol string, series []Bar) error {
	series = SortDedup(series)

	for i := 0; i < len(series); {
		day := series[i].Timestamp.UTC().Truncate(24 * time.Hour)
		next := day.Add(24 * time.Hour)
		j := i
		for j < len(series) && series[j].Timestamp.Before(next) {
			j++
		}

		path := s.dayPath(symbol, day)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("bars: create day dir: %w", err)
		}
		if err := WriteCSVFile(path, series[i:j]); err != nil {
			return err
		}
		log.Debug().Str("symbol", symbol).Str("file", path).Int("bars", j-i).Msg("Wrote day chunk")
		i = j
	}
	return nil
}

// loadMerged returns the series from the pre-merged range file, or nil when
// no such file exists.
func (s *FileStore) loadMerged(symbol string, start, end time.Time) ([]Bar, error) {
	path := s.mergedPath(symbol, start, end)
	chunk, err := ReadCSVFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	series := Clip(SortDedup(chunk), start, end)
	if len(series) == 0 {
		return nil, nil
	}
	// The cache gets the same checks as the day chunks it replaced.
	if err := Validate(series); err != nil {
		return nil, &SchemaError{File: path, Detail: err.Error()}
	}
	log.Debug().Str("symbol", symbol).Str("file", path).Int("bars", len(series)).Msg("Loaded merged range file")
	return series, nil
}
