// Walk-forward runner CLI
// Calibrates strategy parameters on rolling training windows and verifies
// them on the out-of-sample slices that follow.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/walkforward/internal/config"
	"github.com/ajitpratap0/walkforward/internal/fetch"
	"github.com/ajitpratap0/walkforward/internal/report"
	"github.com/ajitpratap0/walkforward/internal/strategy"
	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
	"github.com/ajitpratap0/walkforward/pkg/walkforward"
)

var (
	symbol       = flag.String("symbol", "BTCUSDT", "Symbol to run, e.g. BTCUSDT")
	quote        = flag.String("quote", "USDT", "Quote currency of the symbol")
	timeframe    = flag.String("timeframe", "", "Bar timeframe to trade on, e.g. 1m, 1h, 4h (overrides config)")
	startDate    = flag.String("start", "", "Start date (YYYY-MM-DD)")
	endDate      = flag.String("end", "", "End date (YYYY-MM-DD)")
	trainDays    = flag.Int("train-days", 0, "Training window length in days (overrides config)")
	testDays     = flag.Int("test-days", 0, "Test window length in days (overrides config)")
	strategyName = flag.String("strategy", "", "Strategy name (overrides config)")
	algorithm    = flag.String("algorithm", "", "Optimizer algorithm: random, hillclimb, swarm, genetic (overrides config)")
	budget       = flag.Int("iterations", 0, "Optimizer evaluation budget per window (overrides config)")
	capital      = flag.Float64("capital", 0, "Initial capital (overrides config)")
	commission   = flag.Float64("commission", -1, "Commission rate, e.g. 0.0004 (overrides config)")
	leverage     = flag.Float64("leverage", 0, "Leverage (overrides config)")
	dataDir      = flag.String("data-dir", "", "Bar data directory (overrides config)")
	configPath   = flag.String("config", "", "Config file path")
	outputFile   = flag.String("output", "", "Report file path (default stdout)")
	returnsFile  = flag.String("returns", "", "Combined out-of-sample returns CSV path (optional)")
	doFetch      = flag.Bool("fetch", false, "Download missing klines into the data directory before running")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg)

	level := cfg.App.LogLevel
	if *verbose {
		level = "debug"
	}
	config.InitLogger(level, cfg.App.LogFormat)

	if *startDate == "" || *endDate == "" {
		fmt.Fprintln(os.Stderr, "Error: -start and -end dates are required")
		flag.Usage()
		os.Exit(1)
	}
	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid start date format (use YYYY-MM-DD)")
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid end date format (use YYYY-MM-DD)")
	}

	ctx := context.Background()
	if err := run(ctx, cfg, start, end); err != nil {
		log.Fatal().Err(err).Msg("Walk-forward run failed")
	}
}

// applyOverrides lets explicit flags win over the config file.
func applyOverrides(cfg *config.Config) {
	if *trainDays > 0 {
		cfg.WalkForward.TrainDays = *trainDays
	}
	if *testDays > 0 {
		cfg.WalkForward.TestDays = *testDays
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}
	if *algorithm != "" {
		cfg.Optimizer.Algorithm = *algorithm
	}
	if *budget > 0 {
		cfg.Optimizer.Budget = *budget
	}
	if *capital > 0 {
		cfg.Backtest.InitialCash = *capital
	}
	if *commission >= 0 {
		cfg.Backtest.CommissionRate = *commission
	}
	if *leverage > 0 {
		cfg.Backtest.Leverage = *leverage
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *timeframe != "" {
		cfg.Data.Timeframe = *timeframe
	}
}

func run(ctx context.Context, cfg *config.Config, start, end time.Time) error {
	source, cleanup, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if *doFetch {
		store, ok := source.(*bars.FileStore)
		if !ok {
			return fmt.Errorf("-fetch requires the file data source")
		}
		if err := fetch.SaveDays(ctx, fetch.NewBinance(), store, *symbol, start, end.Add(24*time.Hour)); err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
	}

	spec, err := strategy.Lookup(cfg.Strategy.Name)
	if err != nil {
		return err
	}
	searcher, err := optimize.New(cfg.Optimizer.Algorithm, cfg.Optimizer.Seed)
	if err != nil {
		return err
	}

	fillPolicy := backtest.FillNextOpen
	if cfg.Backtest.FillPolicy == "same_close" {
		fillPolicy = backtest.FillSameClose
	}

	orch, err := walkforward.New(walkforward.Config{
		Instrument:      bars.Instrument{Symbol: *symbol, Quote: *quote},
		Timeframe:       cfg.Data.Timeframe,
		Start:           start,
		End:             end,
		TrainDays:       cfg.WalkForward.TrainDays,
		TestDays:        cfg.WalkForward.TestDays,
		Source:          source,
		Searcher:        searcher,
		Space:           spec.Space,
		Budget:          cfg.Optimizer.Budget,
		Build:           spec.Build,
		InitialCash:     cfg.Backtest.InitialCash,
		CalibrationCash: cfg.Backtest.CalibrationCash,
		Commission: backtest.FractionalCommission{
			Rate:     cfg.Backtest.CommissionRate,
			Leverage: cfg.Backtest.Leverage,
		},
		FillPolicy: fillPolicy,
	})
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if *outputFile != "" {
		if err := report.SaveToFile(*outputFile, result); err != nil {
			return err
		}
		log.Info().Str("file", *outputFile).Msg("Report written")
	} else if err := report.Write(os.Stdout, result); err != nil {
		return err
	}

	if *returnsFile != "" {
		if err := report.WriteReturnsCSV(*returnsFile, result.Combined()); err != nil {
			return err
		}
		log.Info().Str("file", *returnsFile).Msg("Returns CSV written")
	}
	return nil
}

// buildSource constructs the configured bar provider. The cleanup closes
// whatever the provider holds open.
func buildSource(ctx context.Context, cfg *config.Config) (bars.Source, func(), error) {
	switch cfg.Data.Source {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return bars.NewPostgresSource(pool), pool.Close, nil
	default:
		store := &bars.FileStore{Dir: cfg.Data.Dir, PersistMerged: cfg.Data.PersistMerged}
		return store, func() {}, nil
	}
}
