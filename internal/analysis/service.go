package analysis

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	dataSourceLabel = "NASA POWER Project"
	dataSourceURL   = "https://power.larc.nasa.gov/"
	methodology     = "Percentile-based analysis of historical weather data"
	disclaimer      = "Experimental forecast produced by a statistical model trained on historical data. Not an operational weather forecast."
)

// Options carries the policy knobs for the service.
type Options struct {
	StartYear int
	EndYear   int

	// Minimum usable samples before analysis proceeds.
	MinStatYears  int
	MinTrainYears int

	DefaultForecastDays int
	MaxForecastDays     int
}

// Service orchestrates the data source, the statistics engine, the
// forecast model, and the advisor, and maps internal failures to typed
// errors.
type Service struct {
	source     DataSource
	forecaster Forecaster
	advisor    Advisor
	opts       Options
}

// NewService creates a new Service. advisor may be nil to disable
// recommendations.
func NewService(source DataSource, forecaster Forecaster, advisor Advisor, opts Options) *Service {
	return &Service{
		source:     source,
		forecaster: forecaster,
		advisor:    advisor,
		opts:       opts,
	}
}

// validateCoordinate checks latitude/longitude ranges with the
// field-specific messages the API contract requires.
func validateCoordinate(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return NewError(ErrInvalidRequest, "Invalid latitude. Must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return NewError(ErrInvalidRequest, "Invalid longitude. Must be between -180 and 180")
	}
	return nil
}

// validateDate checks month/day validity, allowing Feb 29.
func validateDate(month, day int) error {
	if month < 1 || month > 12 {
		return NewError(ErrInvalidRequest, "Invalid month. Must be between 1 and 12")
	}
	if day < 1 || day > daysInMonth(month) {
		return NewError(ErrInvalidRequest, fmt.Sprintf("Invalid day. Must be between 1 and %d for month %d", daysInMonth(month), month))
	}
	return nil
}

// daysInMonth uses a leap year so Feb 29 stays analyzable.
func daysInMonth(month int) int {
	return time.Date(2000, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AnalyzeHistorical fetches the multi-decade series for the coordinate
// and computes threshold statistics for temperature, precipitation, and
// wind on the requested day of year.
func (s *Service) AnalyzeHistorical(ctx context.Context, lat, lng float64, month, day int) (*AnalysisResult, error) {
	if err := validateCoordinate(lat, lng); err != nil {
		return nil, err
	}
	if err := validateDate(month, day); err != nil {
		return nil, err
	}

	coord := Coordinate{Latitude: lat, Longitude: lng}
	log.Printf("analysis: fetching series for lat=%.4f lon=%.4f date=%02d/%02d", lat, lng, month, day)

	series, err := s.source.FetchDaily(ctx, coord, s.opts.StartYear, s.opts.EndYear)
	if err != nil {
		return nil, err
	}

	daySeries := series.SelectDayOfYear(month, day)
	yearRange := daySeries.YearRange()
	dateAnalyzed := fmt.Sprintf("%02d/%02d", month, day)

	tempVals, err := ValidateForStatistics(daySeries.Values(ParamTemperature), ParamTemperature, s.opts.MinStatYears)
	if err != nil {
		return nil, err
	}
	precipVals, err := ValidateForStatistics(daySeries.Values(ParamPrecipitation), ParamPrecipitation, s.opts.MinStatYears)
	if err != nil {
		return nil, err
	}
	windVals, err := ValidateForStatistics(daySeries.Values(ParamWind), ParamWind, s.opts.MinStatYears)
	if err != nil {
		return nil, err
	}

	tempStats, err := AnalyzeParameter(tempVals, ParamTemperature, yearRange)
	if err != nil {
		return nil, NewError(ErrInsufficientData, err.Error())
	}
	precipStats, err := AnalyzeParameter(precipVals, ParamPrecipitation, yearRange)
	if err != nil {
		return nil, NewError(ErrInsufficientData, err.Error())
	}
	windStats, err := AnalyzeParameter(windVals, ParamWind, yearRange)
	if err != nil {
		return nil, NewError(ErrInsufficientData, err.Error())
	}

	return &AnalysisResult{
		Temperature:   temperaturePayload(tempStats, dateAnalyzed),
		Precipitation: precipitationPayload(precipStats, dateAnalyzed),
		Wind:          windPayload(windStats, dateAnalyzed),
		Metadata: Metadata{
			Location:          LocationMeta{Latitude: lat, Longitude: lng},
			QueryDate:         dateAnalyzed,
			DataSource:        dataSourceLabel,
			APIURL:            dataSourceURL,
			AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
			Methodology:       methodology,
		},
	}, nil
}

// AnalyzeForecast validates inputs and delegates to the forecaster,
// which trains or reuses a cached model for the coordinate's grid cell.
func (s *Service) AnalyzeForecast(ctx context.Context, lat, lng float64, start time.Time, days int) (*ForecastResult, error) {
	if err := validateCoordinate(lat, lng); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.opts.DefaultForecastDays
	}
	if days > s.opts.MaxForecastDays {
		return nil, NewError(ErrInvalidRequest,
			fmt.Sprintf("Invalid days. Must be between 1 and %d", s.opts.MaxForecastDays))
	}

	coord := Coordinate{Latitude: lat, Longitude: lng}
	bundle, err := s.forecaster.Forecast(ctx, coord, start, days)
	if err != nil {
		return nil, err
	}

	return &ForecastResult{
		Forecast:      bundle.Points,
		ModelAccuracy: bundle.Accuracy,
		Metadata: Metadata{
			Location:          LocationMeta{Latitude: lat, Longitude: lng},
			QueryDate:         start.Format("2006-01-02"),
			DataSource:        dataSourceLabel,
			APIURL:            dataSourceURL,
			AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
			Methodology:       "Random-forest regression over cyclical date and location features",
			Disclaimer:        disclaimer,
		},
	}, nil
}

// AnalyzeRecommendation runs the historical and forecast analyses and
// asks the advisor for guidance over the combined picture.
func (s *Service) AnalyzeRecommendation(ctx context.Context, lat, lng float64, month, day int, start time.Time, days int) (*RecommendationResult, error) {
	if s.advisor == nil {
		return nil, NewError(ErrDataUnavailable, "Recommendation service is not configured")
	}

	historical, err := s.AnalyzeHistorical(ctx, lat, lng, month, day)
	if err != nil {
		return nil, err
	}
	forecast, err := s.AnalyzeForecast(ctx, lat, lng, start, days)
	if err != nil {
		return nil, err
	}

	coord := Coordinate{Latitude: lat, Longitude: lng}
	date := start.Format("2006-01-02")
	rec, err := s.advisor.Recommend(ctx, coord, date, historical, forecast)
	if err != nil {
		return nil, NewError(ErrDataUnavailable, "Recommendation generation failed. Please try again.")
	}

	return &RecommendationResult{
		Recommendation: rec,
		Metadata: Metadata{
			Location:          LocationMeta{Latitude: lat, Longitude: lng},
			QueryDate:         date,
			DataSource:        dataSourceLabel,
			APIURL:            dataSourceURL,
			AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
			Methodology:       "Model-assisted guidance over historical statistics and forecast",
			Disclaimer:        disclaimer,
		},
	}, nil
}

func temperaturePayload(ts *ThresholdStats, dateAnalyzed string) *TemperatureStats {
	return &TemperatureStats{
		AverageTemp:  ts.Average,
		MedianTemp:   ts.Median,
		MinTemp:      ts.Min,
		MaxTemp:      ts.Max,
		DataPoints:   ts.DataPoints,
		Unit:         ts.Unit,
		DateAnalyzed: dateAnalyzed,
		YearsOfData:  ts.YearRange,

		VeryHotThreshold:    ts.Thresholds[labelP90],
		VeryHotProbability:  ts.Probabilities["very_hot"],
		HotThreshold:        ts.Thresholds[labelP75],
		HotProbability:      ts.Probabilities["hot"],
		ColdThreshold:       ts.Thresholds[labelP25],
		ColdProbability:     ts.Probabilities["cold"],
		VeryColdThreshold:   ts.Thresholds[labelP10],
		VeryColdProbability: ts.Probabilities["very_cold"],
	}
}

func precipitationPayload(ts *ThresholdStats, dateAnalyzed string) *PrecipitationStats {
	return &PrecipitationStats{
		AveragePrecip: ts.Average,
		MedianPrecip:  ts.Median,
		MinPrecip:     ts.Min,
		MaxPrecip:     ts.Max,
		DataPoints:    ts.DataPoints,
		Unit:          ts.Unit,
		DateAnalyzed:  dateAnalyzed,
		YearsOfData:   ts.YearRange,

		VeryWetThreshold:   ts.Thresholds[labelP90],
		VeryWetProbability: ts.Probabilities["very_wet"],
		WetThreshold:       ts.Thresholds[labelP75],
		WetProbability:     ts.Probabilities["wet"],
		DryDaysPercentage:  ts.Probabilities["dry_days"],
	}
}

func windPayload(ts *ThresholdStats, dateAnalyzed string) *WindStats {
	return &WindStats{
		AverageWind:  ts.Average,
		MedianWind:   ts.Median,
		MinWind:      ts.Min,
		MaxWind:      ts.Max,
		DataPoints:   ts.DataPoints,
		Unit:         ts.Unit,
		DateAnalyzed: dateAnalyzed,
		YearsOfData:  ts.YearRange,

		VeryWindyThreshold:   ts.Thresholds[labelP90],
		VeryWindyProbability: ts.Probabilities["very_windy"],
		WindyThreshold:       ts.Thresholds[labelP75],
		WindyProbability:     ts.Probabilities["windy"],
	}
}
