package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// dryDayEpsilonMM is the rainfall at or below which a day counts as dry.
const dryDayEpsilonMM = 0.1

// percentile labels at the fixed analysis points.
const (
	labelP10 = "p10"
	labelP25 = "p25"
	labelP75 = "p75"
	labelP90 = "p90"
)

// unitFor maps a parameter to its reporting unit.
func unitFor(p Parameter) string {
	switch p {
	case ParamTemperature:
		return "°C"
	case ParamPrecipitation:
		return "mm/day"
	case ParamWind:
		return "m/s"
	}
	return ""
}

// percentile computes the q-th percentile (0..100) with linear
// interpolation between order statistics. The stats dependency is used
// for the summary moments but its percentile uses a different
// convention, so the interpolating definition lives here.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// exceedPct returns the percentage of values v with v >= threshold
// (inclusive; ties count as exceeding).
func exceedPct(values []float64, threshold float64) float64 {
	count := 0
	for _, v := range values {
		if v >= threshold {
			count++
		}
	}
	return 100 * float64(count) / float64(len(values))
}

// belowPct returns the percentage of values v with v <= threshold.
func belowPct(values []float64, threshold float64) float64 {
	count := 0
	for _, v := range values {
		if v <= threshold {
			count++
		}
	}
	return 100 * float64(count) / float64(len(values))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// AnalyzeParameter computes the threshold statistics for one parameter
// over pre-validated day-of-year samples. Values must be non-empty.
func AnalyzeParameter(values []float64, p Parameter, yearRange string) (*ThresholdStats, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("analyze %s: no values", p)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, err := stats.Mean(sorted)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", p, err)
	}
	median, err := stats.Median(sorted)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", p, err)
	}

	ts := &ThresholdStats{
		Average:    round2(mean),
		Median:     round2(median),
		Min:        round2(sorted[0]),
		Max:        round2(sorted[len(sorted)-1]),
		DataPoints: len(values),
		Unit:       unitFor(p),
		YearRange:  yearRange,
		Thresholds: map[string]float64{
			labelP10: round2(percentile(sorted, 10)),
			labelP25: round2(percentile(sorted, 25)),
			labelP75: round2(percentile(sorted, 75)),
			labelP90: round2(percentile(sorted, 90)),
		},
		Probabilities: map[string]float64{},
	}

	// Exceedance probabilities compare against the rounded thresholds
	// the caller sees, so the reported pair stays internally consistent.
	switch p {
	case ParamTemperature:
		ts.Probabilities["very_hot"] = round1(exceedPct(values, ts.Thresholds[labelP90]))
		ts.Probabilities["hot"] = round1(exceedPct(values, ts.Thresholds[labelP75]))
		ts.Probabilities["cold"] = round1(belowPct(values, ts.Thresholds[labelP25]))
		ts.Probabilities["very_cold"] = round1(belowPct(values, ts.Thresholds[labelP10]))
	case ParamPrecipitation:
		ts.Probabilities["very_wet"] = round1(exceedPct(values, ts.Thresholds[labelP90]))
		ts.Probabilities["wet"] = round1(exceedPct(values, ts.Thresholds[labelP75]))
		ts.Probabilities["dry_days"] = round1(belowPct(values, dryDayEpsilonMM))
	case ParamWind:
		ts.Probabilities["very_windy"] = round1(exceedPct(values, ts.Thresholds[labelP90]))
		ts.Probabilities["windy"] = round1(exceedPct(values, ts.Thresholds[labelP75]))
	}

	return ts, nil
}
