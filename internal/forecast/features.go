package forecast

import (
	"math"
	"time"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
)

// featureCount is the length of the engineered feature vector.
const featureCount = 8

// featureVector builds the regression input for one coordinate/date:
// cyclical encodings of day-of-year and month, normalized coordinates,
// distance from equator, and a coastal-proximity estimate. Cyclical
// pairs avoid the discontinuity at period boundaries.
func featureVector(coord analysis.Coordinate, date time.Time) []float64 {
	doy := float64(date.YearDay())
	month := float64(date.Month())

	doyAngle := 2 * math.Pi * doy / 365.25
	monthAngle := 2 * math.Pi * month / 12

	return []float64{
		math.Sin(doyAngle),
		math.Cos(doyAngle),
		math.Sin(monthAngle),
		math.Cos(monthAngle),
		coord.Latitude / 90,
		coord.Longitude / 180,
		math.Abs(coord.Latitude) / 90,
		coastalProximity(coord),
	}
}

// coastalProximity is a crude continentality proxy in [0,1]. There is
// no coastline dataset here; this deterministic estimate only gives the
// regressor a stable location-dependent signal.
func coastalProximity(coord analysis.Coordinate) float64 {
	lat := coord.Latitude * math.Pi / 180
	lon := coord.Longitude * math.Pi / 180
	return math.Abs(math.Sin(lat) * math.Cos(lon))
}

// Scaler standardizes features to zero mean and unit variance using
// training-set statistics only.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// fitScaler computes per-feature mean and standard deviation.
// Zero-variance features keep std 1 so transform is a no-op for them.
func fitScaler(rows [][]float64) Scaler {
	if len(rows) == 0 {
		return Scaler{}
	}
	n := float64(len(rows))
	dim := len(rows[0])

	mean := make([]float64, dim)
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	std := make([]float64, dim)
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}

	return Scaler{Mean: mean, Std: std}
}

func (s Scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

func (s Scaler) transformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.transform(row)
	}
	return out
}
