package analysis

import (
	"fmt"
	"math"
)

// Physical sanity bounds. Values outside these are provider artifacts
// (sentinels, sensor glitches) and are dropped sample-by-sample.
const (
	minPhysicalTempC = -90.0
	maxPhysicalTempC = 60.0
)

// usable reports whether a single value passes the sanity check for
// its parameter.
func usable(v float64, p Parameter) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	switch p {
	case ParamTemperature:
		return v >= minPhysicalTempC && v <= maxPhysicalTempC
	case ParamPrecipitation, ParamWind:
		return v >= 0
	}
	return false
}

// CleanValues drops non-finite and out-of-physical-range samples,
// keeping the rest in order.
func CleanValues(values []float64, p Parameter) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if usable(v, p) {
			out = append(out, v)
		}
	}
	return out
}

// ValidateForStatistics checks that enough usable day-of-year samples
// remain for percentile analysis. Returns the cleaned values.
func ValidateForStatistics(values []float64, p Parameter, minYears int) ([]float64, error) {
	clean := CleanValues(values, p)
	if len(clean) < minYears {
		return nil, NewError(ErrInsufficientData,
			fmt.Sprintf("Not enough historical data for this date and location. At least %d years of samples are required.", minYears))
	}
	return clean, nil
}

// ValidateForTraining checks that the series holds enough usable daily
// temperature observations for model fitting. Returns the observations
// that carry a usable temperature, in date order.
func ValidateForTraining(series HistoricalSeries, minYears int) (HistoricalSeries, error) {
	clean := make(HistoricalSeries, 0, len(series))
	for _, obs := range series {
		if usable(obs.TemperatureC, ParamTemperature) {
			clean = append(clean, obs)
		}
	}
	if len(clean) < minYears*365 {
		return nil, NewError(ErrInsufficientData,
			fmt.Sprintf("Not enough historical data to train a forecast model. At least %d full years of daily observations are required.", minYears))
	}
	return clean, nil
}
