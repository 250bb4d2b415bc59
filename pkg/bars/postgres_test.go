package bars

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSourceLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)

	rows := pgxmock.NewRows([]string{"timestamp", "open", "high", "low", "close", "volume"}).
		AddRow(start, 100.0, 101.0, 99.0, 100.5, 12.0).
		AddRow(start.Add(time.Minute), 100.5, 102.0, 100.0, 101.0, 8.0)

	mock.ExpectQuery("SELECT(.+)FROM candlesticks").
		WithArgs("BTCUSDT", start, end).
		WillReturnRows(rows)

	source := NewPostgresSource(mock)
	series, err := source.Load(context.Background(), "BTCUSDT", start, end)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, start, series[0].Timestamp)
	assert.Equal(t, 100.5, series[0].Close)
	assert.Equal(t, 101.0, series[1].Close)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceEmptyIsDataNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)

	mock.ExpectQuery("SELECT(.+)FROM candlesticks").
		WithArgs("BTCUSDT", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"timestamp", "open", "high", "low", "close", "volume"}))

	source := NewPostgresSource(mock)
	_, err = source.Load(context.Background(), "BTCUSDT", start, end)
	assert.ErrorIs(t, err, ErrDataNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)

	mock.ExpectQuery("SELECT(.+)FROM candlesticks").
		WithArgs("BTCUSDT", start, end).
		WillReturnError(errors.New("connection refused"))

	source := NewPostgresSource(mock)
	_, err = source.Load(context.Background(), "BTCUSDT", start, end)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query candlesticks")
}
