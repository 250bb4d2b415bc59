package bars

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDayChunk(t *testing.T, dir, symbol string, day time.Time, series []Bar) {
	t.Helper()
	d := day.Format("2006-01-02")
	dayDir := filepath.Join(dir, d)
	require.NoError(t, os.MkdirAll(dayDir, 0o755))
	require.NoError(t, WriteCSVFile(filepath.Join(dayDir, d+"_BTCUSDT_1m.csv"), series))
	_ = symbol
}

func minuteBars(day time.Time, n int, base float64) []Bar {
	out := make([]Bar, n)
	for i := range out {
		p := base + float64(i)
		out[i] = Bar{Timestamp: day.Add(time.Duration(i) * time.Minute), Open: p, High: p, Low: p, Close: p, Volume: 1}
	}
	return out
}

func TestFileStoreLoadsAcrossDays(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	writeDayChunk(t, dir, "BTCUSDT", day1, minuteBars(day1, 3, 100))
	writeDayChunk(t, dir, "BTCUSDT", day2, minuteBars(day2, 2, 200))

	store := &FileStore{Dir: dir}
	series, err := store.Load(context.Background(), "BTCUSDT", day1, day2.Add(24*time.Hour))
	require.NoError(t, err)

	require.Len(t, series, 5)
	assert.Equal(t, 100.0, series[0].Close)
	assert.Equal(t, 201.0, series[4].Close)
	assert.NoError(t, Validate(series))
}

func TestFileStoreSkipsMissingDays(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	day3 := day1.Add(48 * time.Hour)

	writeDayChunk(t, dir, "BTCUSDT", day1, minuteBars(day1, 2, 100))
	writeDayChunk(t, dir, "BTCUSDT", day3, minuteBars(day3, 2, 300))

	store := &FileStore{Dir: dir}
	series, err := store.Load(context.Background(), "BTCUSDT", day1, day3.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, 4)
}

func TestFileStoreEmptyRangeIsDataNotFound(t *testing.T) {
	store := &FileStore{Dir: t.TempDir()}
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Load(context.Background(), "BTCUSDT", start, start.Add(24*time.Hour))
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestFileStoreDeduplicatesOverlap(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	chunk := minuteBars(day1, 3, 100)
	// Duplicate of the last bar with a different close: first wins.
	dup := chunk[2]
	dup.Close = 999
	writeDayChunk(t, dir, "BTCUSDT", day1, append(chunk, dup))

	store := &FileStore{Dir: dir}
	series, err := store.Load(context.Background(), "BTCUSDT", day1, day1.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 102.0, series[2].Close)
}

func TestFileStorePersistsAndPrefersMerged(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := day1.Add(24 * time.Hour)
	writeDayChunk(t, dir, "BTCUSDT", day1, minuteBars(day1, 3, 100))

	store := &FileStore{Dir: dir, PersistMerged: true}
	first, err := store.Load(context.Background(), "BTCUSDT", day1, end)
	require.NoError(t, err)

	merged := store.mergedPath("BTCUSDT", day1, end)
	_, err = os.Stat(merged)
	require.NoError(t, err, "merged range file should exist after load")

	// Remove the day chunks: the second load must come from the merged file.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, day1.Format("2006-01-02"))))
	second, err := store.Load(context.Background(), "BTCUSDT", day1, end)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFileStoreRejectsCorruptMergedFile(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := day1.Add(24 * time.Hour)

	// A cached range file with a non-positive price must not reach the
	// caller unchecked.
	series := minuteBars(day1, 3, 100)
	series[1].Close = -5
	store := &FileStore{Dir: dir}
	require.NoError(t, WriteCSVFile(store.mergedPath("BTCUSDT", day1, end), series))

	_, err := store.Load(context.Background(), "BTCUSDT", day1, end)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
}

func TestFileStoreSchemaErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	d := day1.Format("2006-01-02")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
	bad := "open,high,low,close,volume\n1,1,1,1,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, d, d+"_BTCUSDT_1m.csv"), []byte(bad), 0o644))

	store := &FileStore{Dir: dir}
	_, err := store.Load(context.Background(), "BTCUSDT", day1, day1.Add(24*time.Hour))
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
}

func TestFileStoreWriteDaysRoundTrip(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	series := append(minuteBars(day1, 3, 100), minuteBars(day2, 2, 200)...)
	store := &FileStore{Dir: dir}
	require.NoError(t, store.WriteDays("BTCUSDT", series))

	loaded, err := store.Load(context.Background(), "BTCUSDT", day1, day2.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, series, loaded)
}

func TestFileStoreContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &FileStore{Dir: t.TempDir()}
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Load(ctx, "BTCUSDT", start, start.Add(24*time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}
