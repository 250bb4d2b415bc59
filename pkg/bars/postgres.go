package bars

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PgxQuerier is the slice of a pgx pool the source needs. *pgxpool.Pool
// satisfies it, as does pgxmock in tests.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource loads bar series from a candlesticks table
// (TimescaleDB-style hypertable keyed by symbol and timestamp).
type PostgresSource struct {
	db PgxQuerier
}

// NewPostgresSource creates a Postgres-backed bar source.
func NewPostgresSource(db PgxQuerier) *PostgresSource {
	return &PostgresSource{db: db}
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM candlesticks
		WHERE symbol = $1
			AND timestamp >= $2
			AND timestamp < $3
		ORDER BY timestamp ASC
	`

	rows, err := s.db.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query candlesticks: %w", err)
	}
	defer rows.Close()

	var series []Bar
	for rows.Next() {
		var b Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan candlestick: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		series = append(series, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candlesticks: %w", err)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrDataNotFound, symbol, start.Format(dateLayout), end.Format(dateLayout))
	}

	log.Info().
		Str("symbol", symbol).
		Int("bars", len(series)).
		Msg("Loaded bar series from database")

	return series, nil
}
