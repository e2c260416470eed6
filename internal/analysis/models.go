package analysis

import (
	"context"
	"fmt"
	"time"
)

// Parameter identifies a daily weather variable in the historical series.
type Parameter string

const (
	ParamTemperature   Parameter = "temperature"
	ParamPrecipitation Parameter = "precipitation"
	ParamWind          Parameter = "wind"
)

// Coordinate is a geographic point. Latitude in [-90,90], longitude in [-180,180].
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DailyObservation is one day of provider data for a coordinate.
// Missing values are NaN; the validator drops them per parameter.
type DailyObservation struct {
	Date            time.Time
	TemperatureC    float64
	PrecipitationMM float64
	WindSpeedMS     float64
}

// HistoricalSeries is a date-ordered sequence of daily observations
// for a single coordinate.
type HistoricalSeries []DailyObservation

// SelectDayOfYear returns the observations sharing the given calendar
// month and day across all years in the series.
func (s HistoricalSeries) SelectDayOfYear(month, day int) HistoricalSeries {
	var out HistoricalSeries
	for _, obs := range s {
		if int(obs.Date.Month()) == month && obs.Date.Day() == day {
			out = append(out, obs)
		}
	}
	return out
}

// Values extracts the raw values for one parameter, in series order.
func (s HistoricalSeries) Values(p Parameter) []float64 {
	out := make([]float64, 0, len(s))
	for _, obs := range s {
		switch p {
		case ParamTemperature:
			out = append(out, obs.TemperatureC)
		case ParamPrecipitation:
			out = append(out, obs.PrecipitationMM)
		case ParamWind:
			out = append(out, obs.WindSpeedMS)
		}
	}
	return out
}

// YearRange returns "first-last" over the years present in the series,
// e.g. "1995-2023". Empty series yields "".
func (s HistoricalSeries) YearRange() string {
	if len(s) == 0 {
		return ""
	}
	first := s[0].Date.Year()
	last := s[0].Date.Year()
	for _, obs := range s[1:] {
		y := obs.Date.Year()
		if y < first {
			first = y
		}
		if y > last {
			last = y
		}
	}
	return fmt.Sprintf("%d-%d", first, last)
}

// DataSource abstracts the historical daily-point data product
// (NASA POWER in production, fakes in tests).
type DataSource interface {
	// FetchDaily returns the daily series for the coordinate over
	// [startYear, endYear]. The call may be slow and may fail; missing
	// days are tolerated and surface as NaN fields.
	FetchDaily(ctx context.Context, coord Coordinate, startYear, endYear int) (HistoricalSeries, error)
}

// ThresholdStats is the percentile-based characterization of one
// parameter for a specific day of year. Recomputed per request, never
// mutated after construction.
type ThresholdStats struct {
	Average    float64
	Median     float64
	Min        float64
	Max        float64
	DataPoints int
	Unit       string
	YearRange  string

	// Percentile label ("p10", "p25", "p75", "p90") to threshold value.
	Thresholds map[string]float64

	// Named bucket ("very_hot", "cold", ...) to empirical percentage in [0,100].
	Probabilities map[string]float64
}

// ForecastPoint is one predicted day of the temperature forecast.
type ForecastPoint struct {
	Date                  string  `json:"date"`
	PredictedTemperatureC float64 `json:"predicted_temperature_c"`
	ConfidenceLower       float64 `json:"confidence_lower"`
	ConfidenceUpper       float64 `json:"confidence_upper"`
	DayOffset             int     `json:"day_offset"`
}

// ModelAccuracy reports the held-out accuracy of the trained model.
type ModelAccuracy struct {
	MeanAbsoluteError  float64 `json:"mean_absolute_error"`
	TrainingDataPoints int     `json:"training_data_points"`
	TrainingPeriod     string  `json:"training_period"`
}

// ForecastBundle is what a Forecaster hands back to the service:
// materialized points plus the accuracy of the model that produced them.
type ForecastBundle struct {
	Points   []ForecastPoint
	Accuracy ModelAccuracy
}

// Forecaster trains (or reuses a cached) temperature model for a
// coordinate and produces an N-day forward prediction.
type Forecaster interface {
	Forecast(ctx context.Context, coord Coordinate, start time.Time, horizonDays int) (*ForecastBundle, error)
}

// TemperatureStats is the wire shape of the temperature analysis block.
type TemperatureStats struct {
	AverageTemp  float64 `json:"average_temp"`
	MedianTemp   float64 `json:"median_temp"`
	MinTemp      float64 `json:"min_temp"`
	MaxTemp      float64 `json:"max_temp"`
	DataPoints   int     `json:"data_points"`
	Unit         string  `json:"unit"`
	DateAnalyzed string  `json:"date_analyzed"`
	YearsOfData  string  `json:"years_of_data"`

	VeryHotThreshold    float64 `json:"very_hot_threshold"`
	VeryHotProbability  float64 `json:"very_hot_probability"`
	HotThreshold        float64 `json:"hot_threshold"`
	HotProbability      float64 `json:"hot_probability"`
	ColdThreshold       float64 `json:"cold_threshold"`
	ColdProbability     float64 `json:"cold_probability"`
	VeryColdThreshold   float64 `json:"very_cold_threshold"`
	VeryColdProbability float64 `json:"very_cold_probability"`
}

// PrecipitationStats is the wire shape of the precipitation analysis block.
type PrecipitationStats struct {
	AveragePrecip float64 `json:"average_precip"`
	MedianPrecip  float64 `json:"median_precip"`
	MinPrecip     float64 `json:"min_precip"`
	MaxPrecip     float64 `json:"max_precip"`
	DataPoints    int     `json:"data_points"`
	Unit          string  `json:"unit"`
	DateAnalyzed  string  `json:"date_analyzed"`
	YearsOfData   string  `json:"years_of_data"`

	VeryWetThreshold   float64 `json:"very_wet_threshold"`
	VeryWetProbability float64 `json:"very_wet_probability"`
	WetThreshold       float64 `json:"wet_threshold"`
	WetProbability     float64 `json:"wet_probability"`
	DryDaysPercentage  float64 `json:"dry_days_percentage"`
}

// WindStats is the wire shape of the wind analysis block.
type WindStats struct {
	AverageWind  float64 `json:"average_wind"`
	MedianWind   float64 `json:"median_wind"`
	MinWind      float64 `json:"min_wind"`
	MaxWind      float64 `json:"max_wind"`
	DataPoints   int     `json:"data_points"`
	Unit         string  `json:"unit"`
	DateAnalyzed string  `json:"date_analyzed"`
	YearsOfData  string  `json:"years_of_data"`

	VeryWindyThreshold   float64 `json:"very_windy_threshold"`
	VeryWindyProbability float64 `json:"very_windy_probability"`
	WindyThreshold       float64 `json:"windy_threshold"`
	WindyProbability     float64 `json:"windy_probability"`
}

// Recommendation is the model-generated guidance block: a short
// summary, a narrative forecast, and concrete precautions.
type Recommendation struct {
	Summary          string   `json:"summary"`
	DetailedForecast string   `json:"detailed_forecast"`
	Precautions      []string `json:"precautions"`
	ConfidenceLevel  string   `json:"confidence_level"`
}

// Advisor turns computed analysis and forecast payloads into guidance
// for the requested location and date.
type Advisor interface {
	Recommend(ctx context.Context, coord Coordinate, date string, historical *AnalysisResult, forecast *ForecastResult) (*Recommendation, error)
}

// LocationMeta echoes the requested coordinate in response metadata.
type LocationMeta struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Metadata is the response metadata block shared by both endpoints.
type Metadata struct {
	Location          LocationMeta `json:"location"`
	QueryDate         string       `json:"query_date"`
	DataSource        string       `json:"data_source"`
	APIURL            string       `json:"api_url"`
	AnalysisTimestamp string       `json:"analysis_timestamp"`
	Methodology       string       `json:"methodology"`
	Disclaimer        string       `json:"disclaimer,omitempty"`
}

// AnalysisResult is the full /api/analyze response payload.
type AnalysisResult struct {
	Temperature   *TemperatureStats   `json:"temperature"`
	Precipitation *PrecipitationStats `json:"precipitation"`
	Wind          *WindStats          `json:"wind"`
	Metadata      Metadata            `json:"metadata"`
}

// ForecastResult is the full /api/forecast response payload.
type ForecastResult struct {
	Forecast      []ForecastPoint `json:"forecast"`
	ModelAccuracy ModelAccuracy   `json:"model_accuracy"`
	Metadata      Metadata        `json:"metadata"`
}

// RecommendationResult is the full /api/recommendations response payload.
type RecommendationResult struct {
	Recommendation *Recommendation `json:"recommendation"`
	Metadata       Metadata        `json:"metadata"`
}
