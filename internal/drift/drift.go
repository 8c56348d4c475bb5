// Package drift implements the Temporal Drift component (spec.md §4.H): a
// bounded FIFO window over CUS values, delta/mean triggers, and a warmup
// gate. Unlike the teacher's EWMA pressure accumulator
// (internal/escalation/pressure.go in the original), this is a genuine
// rolling window over the last N samples, since spec.md requires a
// mean-over-window rather than an exponentially-weighted average.
package drift

import "strings"

// Result is the per-call drift evaluation.
type Result struct {
	DeltaCUS   *float64 // nil if no previous sample exists yet
	CUSMean    float64
	Driver     string
	Applied    bool
	HistoryLen int
}

const (
	DriverWarmup    = "warmup"
	DriverDelta     = "delta"
	DriverMean      = "mean"
	DriverDeltaMean = "delta+mean"
	DriverNone      = "none"
)

// UpdateCUSHistory appends cus to hist, evicting from the front once the
// window length is exceeded. Returns the updated slice — callers must
// store it back into their Context.
func UpdateCUSHistory(hist []float64, cus float64, window int) []float64 {
	hist = append(hist, cus)
	if len(hist) > window {
		hist = hist[len(hist)-window:]
	}
	return hist
}

// Evaluate computes the drift result from the (already updated) CUS
// history window.
func Evaluate(hist []float64, deltaThreshold, meanThreshold float64, minHistory int) Result {
	n := len(hist)
	var delta *float64
	if n >= 2 {
		d := hist[n-1] - hist[n-2]
		delta = &d
	}

	var sum float64
	for _, v := range hist {
		sum += v
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}

	driver := DriverNone
	deltaTrigger := delta != nil && *delta > deltaThreshold
	meanTrigger := mean > meanThreshold

	switch {
	case n < minHistory:
		driver = DriverWarmup
	case deltaTrigger && meanTrigger:
		driver = DriverDeltaMean
	case deltaTrigger:
		driver = DriverDelta
	case meanTrigger:
		driver = DriverMean
	default:
		driver = DriverNone
	}

	applied := driver == DriverDelta || driver == DriverMean || driver == DriverDeltaMean

	return Result{
		DeltaCUS:   delta,
		CUSMean:    mean,
		Driver:     driver,
		Applied:    applied,
		HistoryLen: n,
	}
}

// ShouldPreemptivelyEscalate mirrors the reference engine's
// should_preemptively_escalate: applied and past warmup.
func ShouldPreemptivelyEscalate(r Result, minHistory int) bool {
	return r.Applied && r.HistoryLen >= minHistory
}

// UpdateDriverHistory appends primaryDriver to driverHist, bounding it to
// the last 50 entries (the reference engine's driver_history retention).
func UpdateDriverHistory(driverHist []string, primaryDriver string) []string {
	driverHist = append(driverHist, primaryDriver)
	if len(driverHist) > 50 {
		driverHist = driverHist[len(driverHist)-50:]
	}
	return driverHist
}

// DriverHistoryAlarm implements the driver-history consensus alarm
// (SPEC_FULL.md §5, grounded on mdm_engine/engine.py): only evaluated once
// at least 10 decisions of driver history exist. Compares the count of
// "constraint_violation" occurrences in the most recent 10 drivers against
// the preceding window (up to 20 more), alarming if the recent count is
// high and the prior count was low or the prior window is too short to
// judge.
func DriverHistoryAlarm(driverHist []string) bool {
	if len(driverHist) < 10 {
		return false
	}
	recent := driverHist[len(driverHist)-10:]
	var prev []string
	if len(driverHist) >= 30 {
		prev = driverHist[len(driverHist)-30 : len(driverHist)-10]
	} else {
		prev = driverHist[:len(driverHist)-10]
	}

	countRecent := countSubstring(recent, "constraint_violation")
	countPrev := countSubstring(prev, "constraint_violation")

	return countRecent >= 5 && (len(prev) < 5 || countPrev <= 1)
}

func countSubstring(drivers []string, substr string) int {
	count := 0
	for _, d := range drivers {
		if strings.Contains(d, substr) {
			count++
		}
	}
	return count
}
