// Package walkforward rolls a calibrate-then-verify cycle across history:
// parameters are fit on a training slice, traded unseen on the following
// test slice, and the equity earned out of sample is carried into the next
// window's starting capital.
package walkforward

import (
	"fmt"
	"time"
)

// Window is one train/test pair. All four bounds are inclusive calendar
// days; TestStart is always the day after TrainEnd, so a 6-day train from
// Jan 1 ends Jan 6 and its test begins Jan 7.
type Window struct {
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`
}

func (w Window) String() string {
	const d = "2006-01-02"
	return fmt.Sprintf("train %s..%s test %s..%s",
		w.TrainStart.Format(d), w.TrainEnd.Format(d),
		w.TestStart.Format(d), w.TestEnd.Format(d))
}

// GenerateWindows slides fixed-length windows over [start, end], advancing
// by the test length so consecutive test slices tile the range without
// overlap. A window whose test slice would run past end is dropped rather
// than truncated.
func GenerateWindows(start, end time.Time, trainDays, testDays int) ([]Window, error) {
	if trainDays < 1 || testDays < 1 {
		return nil, fmt.Errorf("window lengths must be positive, got train=%d test=%d", trainDays, testDays)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	day := 24 * time.Hour
	var windows []Window

	trainStart := start.UTC().Truncate(day)
	endDay := end.UTC().Truncate(day)

	for {
		w := Window{TrainStart: trainStart}
		w.TrainEnd = w.TrainStart.Add(time.Duration(trainDays-1) * day)
		w.TestStart = w.TrainEnd.Add(day)
		w.TestEnd = w.TestStart.Add(time.Duration(testDays-1) * day)

		if w.TestEnd.After(endDay) {
			break
		}
		windows = append(windows, w)
		trainStart = trainStart.Add(time.Duration(testDays) * day)
	}

	return windows, nil
}
