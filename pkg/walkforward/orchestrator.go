package walkforward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/walkforward/pkg/backtest"
	"github.com/ajitpratap0/walkforward/pkg/bars"
	"github.com/ajitpratap0/walkforward/pkg/optimize"
)

// Config wires the orchestrator's collaborators together. Build turns a
// parameter set into a runnable decision function; it is called once per
// optimizer trial on training data and once per window on test data.
type Config struct {
	Instrument bars.Instrument
	Start      time.Time
	End        time.Time
	TrainDays  int
	TestDays   int

	// Timeframe selects the bar granularity the strategy trades on.
	// Loaded series are resampled to it; empty means the source
	// granularity as stored.
	Timeframe string

	Source   bars.Source
	Searcher optimize.Searcher
	Space    []optimize.Param
	Budget   int
	Build    func(params optimize.ParamSet) backtest.DecisionFunc

	InitialCash float64
	// CalibrationCash is the fixed bankroll every training run starts
	// from, so trial scores stay comparable across windows regardless of
	// how much equity the live sequence has accumulated. Defaults to
	// InitialCash.
	CalibrationCash float64
	Commission      backtest.FractionalCommission
	FillPolicy      backtest.FillPolicy
}

func (c *Config) validate() error {
	if c.Timeframe != "" {
		if _, ok := bars.ParseTimeframe(c.Timeframe); !ok {
			return fmt.Errorf("unsupported timeframe %q", c.Timeframe)
		}
	}
	switch {
	case c.Instrument.Symbol == "":
		return errors.New("instrument symbol is required")
	case c.Source == nil:
		return errors.New("bar source is required")
	case c.Searcher == nil:
		return errors.New("searcher is required")
	case c.Build == nil:
		return errors.New("strategy builder is required")
	case len(c.Space) == 0:
		return errors.New("parameter space is empty")
	case c.Budget < 1:
		return errors.New("optimizer budget must be positive")
	case c.InitialCash <= 0:
		return errors.New("initial cash must be positive")
	}
	return nil
}

// WindowResult is one completed window: the parameters that won
// calibration, their in-sample score, and what they actually did out of
// sample.
type WindowResult struct {
	Window     Window                 `json:"window"`
	Params     optimize.ParamSet      `json:"params"`
	TrainScore float64                `json:"train_score"`
	TestScore  backtest.Score         `json:"test_score"`
	StartCash  float64                `json:"start_cash"`
	EndEquity  float64                `json:"end_equity"`
	Segment    []backtest.EquityPoint `json:"segment"`
	Trades     []backtest.Trade       `json:"trades"`
}

// Result is the full out-of-sample record of a run.
type Result struct {
	Instrument  bars.Instrument `json:"instrument"`
	InitialCash float64         `json:"initial_cash"`
	FinalEquity float64         `json:"final_equity"`
	Windows     []WindowResult  `json:"windows"`
	Skipped     []Window        `json:"skipped"`
}

// Combined concatenates the out-of-sample equity segments in window order.
func (r *Result) Combined() []backtest.EquityPoint {
	var out []backtest.EquityPoint
	for _, w := range r.Windows {
		out = append(out, w.Segment...)
	}
	return out
}

// Trades concatenates the out-of-sample trades in window order.
func (r *Result) Trades() []backtest.Trade {
	var out []backtest.Trade
	for _, w := range r.Windows {
		out = append(out, w.Trades...)
	}
	return out
}

// checkContinuity verifies segments are chronologically increasing and
// non-overlapping across windows.
func (r *Result) checkContinuity() error {
	var last time.Time
	for i, w := range r.Windows {
		for _, p := range w.Segment {
			if !p.Timestamp.After(last) {
				return fmt.Errorf("window %d: equity point %s does not advance past %s",
					i+1, p.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339))
			}
			last = p.Timestamp
		}
	}
	return nil
}

// Orchestrator runs the windowed calibrate/evaluate cycle.
type Orchestrator struct {
	cfg  Config
	step time.Duration
}

func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("walkforward config: %w", err)
	}
	if cfg.CalibrationCash <= 0 {
		cfg.CalibrationCash = cfg.InitialCash
	}
	o := &Orchestrator{cfg: cfg}
	if cfg.Timeframe != "" {
		o.step, _ = bars.ParseTimeframe(cfg.Timeframe)
	}
	return o, nil
}

// Run walks every window in order. Windows whose data is missing are
// skipped and recorded; schema errors and anything else abort the run.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	windows, err := GenerateWindows(o.cfg.Start, o.cfg.End, o.cfg.TrainDays, o.cfg.TestDays)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("range %s to %s too short for %dd train + %dd test",
			o.cfg.Start.Format("2006-01-02"), o.cfg.End.Format("2006-01-02"),
			o.cfg.TrainDays, o.cfg.TestDays)
	}

	log.Info().
		Str("pair", o.cfg.Instrument.Pair()).
		Str("timeframe", o.cfg.Timeframe).
		Int("windows", len(windows)).
		Int("train_days", o.cfg.TrainDays).
		Int("test_days", o.cfg.TestDays).
		Str("optimizer", o.cfg.Searcher.Name()).
		Msg("Starting walk-forward run")

	result := &Result{Instrument: o.cfg.Instrument, InitialCash: o.cfg.InitialCash}
	cash := o.cfg.InitialCash

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wr, err := o.runWindow(ctx, w, cash)
		if err != nil {
			if errors.Is(err, bars.ErrDataNotFound) {
				log.Warn().Int("window", i+1).Stringer("range", w).
					Msg("No data for window, skipping")
				result.Skipped = append(result.Skipped, w)
				continue
			}
			return nil, fmt.Errorf("window %d (%s): %w", i+1, w, err)
		}

		cash = wr.EndEquity
		result.Windows = append(result.Windows, *wr)

		log.Info().
			Int("window", i+1).
			Int("total", len(windows)).
			Float64("train_score", wr.TrainScore).
			Float64("test_score", wr.TestScore.Composite).
			Float64("equity", wr.EndEquity).
			Msg("Walk-forward window complete")
	}

	result.FinalEquity = cash
	if err := result.checkContinuity(); err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) runWindow(ctx context.Context, w Window, cash float64) (*WindowResult, error) {
	train, err := o.loadSlice(ctx, w.TrainStart, w.TrainEnd)
	if err != nil {
		return nil, err
	}
	test, err := o.loadSlice(ctx, w.TestStart, w.TestEnd)
	if err != nil {
		return nil, err
	}

	best, err := o.calibrate(ctx, train)
	if err != nil {
		return nil, err
	}

	res, err := o.run(ctx, test, best.Params, cash)
	if err != nil {
		return nil, fmt.Errorf("out-of-sample run: %w", err)
	}

	return &WindowResult{
		Window:     w,
		Params:     best.Params,
		TrainScore: best.Score,
		TestScore:  backtest.AnalyzeResult(res),
		StartCash:  cash,
		EndEquity:  res.FinalEquity,
		Segment:    res.EquityCurve,
		Trades:     res.Trades,
	}, nil
}

// loadSlice converts inclusive calendar-day bounds to the provider's
// half-open instant range and resamples to the configured timeframe.
func (o *Orchestrator) loadSlice(ctx context.Context, first, last time.Time) ([]bars.Bar, error) {
	series, err := o.cfg.Source.Load(ctx, o.cfg.Instrument.Symbol, first, last.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	if o.step > 0 {
		series = bars.Resample(series, o.step)
	}
	return series, nil
}

// calibrate searches the parameter space on training bars. Every trial
// starts from the same fixed bankroll.
func (o *Orchestrator) calibrate(ctx context.Context, train []bars.Bar) (*optimize.Trial, error) {
	objective := func(ctx context.Context, params optimize.ParamSet) (float64, error) {
		res, err := o.run(ctx, train, params, o.cfg.CalibrationCash)
		if err != nil {
			return 0, err
		}
		return backtest.AnalyzeResult(res).Composite, nil
	}

	best, err := o.cfg.Searcher.Search(ctx, objective, o.cfg.Space, o.cfg.Budget)
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	return best, nil
}

func (o *Orchestrator) run(ctx context.Context, series []bars.Bar, params optimize.ParamSet, cash float64) (*backtest.Result, error) {
	engine := backtest.NewEngine(backtest.Config{
		InitialCash: cash,
		Commission:  o.cfg.Commission,
		FillPolicy:  o.cfg.FillPolicy,
	})
	return engine.Run(ctx, series, o.cfg.Build(params))
}
