package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource implements DataSource and counts fetches so tests can
// assert that input validation short-circuits before any network call.
type fakeSource struct {
	series HistoricalSeries
	err    error
	calls  atomic.Int32
}

func (f *fakeSource) FetchDaily(ctx context.Context, coord Coordinate, startYear, endYear int) (HistoricalSeries, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

// fakeForecaster returns a canned bundle.
type fakeForecaster struct {
	bundle *ForecastBundle
	err    error
}

func (f *fakeForecaster) Forecast(ctx context.Context, coord Coordinate, start time.Time, horizonDays int) (*ForecastBundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bundle, nil
}

func testOptions() Options {
	return Options{
		StartYear:           1995,
		EndYear:             2023,
		MinStatYears:        5,
		MinTrainYears:       2,
		DefaultForecastDays: 7,
		MaxForecastDays:     30,
	}
}

// fixtureSeries holds one July 15 observation per year 1995-2023 with
// the temperatures from the statistics fixture.
func fixtureSeries() HistoricalSeries {
	sorted := []float64{
		20.2, 20.7, 21.1, 21.2, 21.5,
		22.0, 22.2, 22.4, 22.6, 22.8, 23.0, 23.2, 23.4, 23.6, 23.8,
		24.0, 24.2, 24.4, 24.6, 24.8, 25.0, 25.2, 25.4, 25.6, 25.8,
		26.0, 26.5, 27.0, 28.0,
	}
	var series HistoricalSeries
	for i, temp := range sorted {
		series = append(series, DailyObservation{
			Date:            time.Date(1995+i, 7, 15, 0, 0, 0, 0, time.UTC),
			TemperatureC:    temp,
			PrecipitationMM: float64(i % 5),
			WindSpeedMS:     2 + float64(i%4),
		})
	}
	return series
}

func TestAnalyzeHistoricalFixture(t *testing.T) {
	src := &fakeSource{series: fixtureSeries()}
	svc := NewService(src, &fakeForecaster{}, nil, testOptions())

	result, err := svc.AnalyzeHistorical(context.Background(), 40.7128, -74.006, 7, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	temp := result.Temperature
	if temp.DataPoints != 29 {
		t.Errorf("data_points: got %d, want 29", temp.DataPoints)
	}
	if !almostEqual(temp.AverageTemp, 23.8, 1e-6) {
		t.Errorf("average_temp: got %v, want 23.8", temp.AverageTemp)
	}
	if !almostEqual(temp.VeryHotThreshold, 26.1, 1e-6) {
		t.Errorf("very_hot_threshold: got %v, want 26.1", temp.VeryHotThreshold)
	}
	if !almostEqual(temp.VeryHotProbability, 10.3, 1e-6) {
		t.Errorf("very_hot_probability: got %v, want 10.3", temp.VeryHotProbability)
	}
	if temp.YearsOfData != "1995-2023" {
		t.Errorf("years_of_data: got %q", temp.YearsOfData)
	}
	if temp.DateAnalyzed != "07/15" {
		t.Errorf("date_analyzed: got %q", temp.DateAnalyzed)
	}

	if result.Precipitation == nil || result.Wind == nil {
		t.Fatal("missing precipitation or wind block")
	}
	if result.Metadata.DataSource != "NASA POWER Project" {
		t.Errorf("data_source: got %q", result.Metadata.DataSource)
	}
	if result.Metadata.Methodology == "" {
		t.Error("missing methodology")
	}
}

func TestAnalyzeHistoricalInvalidLatitudeSkipsFetch(t *testing.T) {
	src := &fakeSource{series: fixtureSeries()}
	svc := NewService(src, &fakeForecaster{}, nil, testOptions())

	_, err := svc.AnalyzeHistorical(context.Background(), 140, 0, 7, 15)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err.Error() != "Invalid latitude. Must be between -90 and 90" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if src.calls.Load() != 0 {
		t.Errorf("expected no fetch, got %d calls", src.calls.Load())
	}
}

func TestAnalyzeHistoricalValidation(t *testing.T) {
	cases := []struct {
		name                 string
		lat, lng             float64
		month, day           int
		wantMessageFragments string
	}{
		{"longitude", 0, 200, 7, 15, "Invalid longitude"},
		{"month", 0, 0, 13, 1, "Invalid month"},
		{"day", 0, 0, 2, 30, "Invalid day"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{series: fixtureSeries()}
			svc := NewService(src, &fakeForecaster{}, nil, testOptions())

			_, err := svc.AnalyzeHistorical(context.Background(), tc.lat, tc.lng, tc.month, tc.day)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if src.calls.Load() != 0 {
				t.Error("validation should precede fetch")
			}
		})
	}
}

func TestAnalyzeHistoricalLeapDay(t *testing.T) {
	// Feb 29 is a valid query even though most years lack it.
	var series HistoricalSeries
	for year := 1996; year <= 2020; year += 4 {
		series = append(series, DailyObservation{
			Date:            time.Date(year, 2, 29, 0, 0, 0, 0, time.UTC),
			TemperatureC:    5,
			PrecipitationMM: 1,
			WindSpeedMS:     4,
		})
	}
	src := &fakeSource{series: series}
	svc := NewService(src, &fakeForecaster{}, nil, testOptions())

	result, err := svc.AnalyzeHistorical(context.Background(), 50, 10, 2, 29)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Temperature.DataPoints != 7 {
		t.Errorf("data_points: got %d, want 7", result.Temperature.DataPoints)
	}
}

func TestAnalyzeHistoricalDataUnavailable(t *testing.T) {
	src := &fakeSource{err: NewError(ErrDataUnavailable, "Failed to fetch data from NASA POWER API. Please try again.")}
	svc := NewService(src, &fakeForecaster{}, nil, testOptions())

	_, err := svc.AnalyzeHistorical(context.Background(), 40, -74, 7, 15)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestAnalyzeHistoricalInsufficientData(t *testing.T) {
	src := &fakeSource{series: fixtureSeries()[:3]}
	svc := NewService(src, &fakeForecaster{}, nil, testOptions())

	_, err := svc.AnalyzeHistorical(context.Background(), 40, -74, 7, 15)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyzeForecast(t *testing.T) {
	bundle := &ForecastBundle{
		Points: []ForecastPoint{
			{Date: "2024-07-15", PredictedTemperatureC: 24.1, ConfidenceLower: 22.0, ConfidenceUpper: 26.2, DayOffset: 0},
		},
		Accuracy: ModelAccuracy{MeanAbsoluteError: 2.1, TrainingDataPoints: 8000, TrainingPeriod: "1995-2023"},
	}
	svc := NewService(&fakeSource{}, &fakeForecaster{bundle: bundle}, nil, testOptions())

	result, err := svc.AnalyzeForecast(context.Background(), 40, -74, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Forecast) != 1 {
		t.Fatalf("got %d points", len(result.Forecast))
	}
	if result.ModelAccuracy.MeanAbsoluteError != 2.1 {
		t.Errorf("mean_absolute_error: got %v", result.ModelAccuracy.MeanAbsoluteError)
	}
	if result.Metadata.Disclaimer == "" {
		t.Error("forecast metadata must carry the experimental disclaimer")
	}
}

func TestAnalyzeForecastHorizonCap(t *testing.T) {
	svc := NewService(&fakeSource{}, &fakeForecaster{}, nil, testOptions())

	_, err := svc.AnalyzeForecast(context.Background(), 40, -74, time.Now(), 31)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for horizon over cap, got %v", err)
	}
}

// fakeAdvisor returns a canned recommendation and records the payloads
// it was handed.
type fakeAdvisor struct {
	rec        *Recommendation
	err        error
	historical *AnalysisResult
	forecast   *ForecastResult
}

func (f *fakeAdvisor) Recommend(ctx context.Context, coord Coordinate, date string, historical *AnalysisResult, forecast *ForecastResult) (*Recommendation, error) {
	f.historical = historical
	f.forecast = forecast
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func TestAnalyzeRecommendation(t *testing.T) {
	bundle := &ForecastBundle{
		Points: []ForecastPoint{
			{Date: "2024-07-15", PredictedTemperatureC: 24.1, ConfidenceLower: 22.0, ConfidenceUpper: 26.2},
		},
		Accuracy: ModelAccuracy{MeanAbsoluteError: 2.1, TrainingDataPoints: 8000, TrainingPeriod: "1995-2023"},
	}
	advisor := &fakeAdvisor{rec: &Recommendation{
		Summary:         "Warm and mostly dry.",
		Precautions:     []string{"Carry water"},
		ConfidenceLevel: "medium",
	}}
	src := &fakeSource{series: fixtureSeries()}
	svc := NewService(src, &fakeForecaster{bundle: bundle}, advisor, testOptions())

	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	result, err := svc.AnalyzeRecommendation(context.Background(), 40.7128, -74.006, 7, 15, start, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Recommendation.Summary != "Warm and mostly dry." {
		t.Errorf("summary: got %q", result.Recommendation.Summary)
	}
	if result.Metadata.Disclaimer == "" {
		t.Error("recommendation metadata must carry the experimental disclaimer")
	}
	// The advisor sees the fully computed payloads, not raw series.
	if advisor.historical == nil || advisor.historical.Temperature.DataPoints != 29 {
		t.Error("advisor did not receive the historical analysis")
	}
	if advisor.forecast == nil || len(advisor.forecast.Forecast) != 1 {
		t.Error("advisor did not receive the forecast")
	}
}

func TestAnalyzeRecommendationNotConfigured(t *testing.T) {
	src := &fakeSource{series: fixtureSeries()}
	svc := NewService(src, &fakeForecaster{}, nil, testOptions())

	_, err := svc.AnalyzeRecommendation(context.Background(), 40, -74, 7, 15, time.Now(), 7)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if src.calls.Load() != 0 {
		t.Error("unconfigured advisor must not trigger fetches")
	}
}

func TestAnalyzeRecommendationInvalidInput(t *testing.T) {
	advisor := &fakeAdvisor{rec: &Recommendation{}}
	svc := NewService(&fakeSource{series: fixtureSeries()}, &fakeForecaster{}, advisor, testOptions())

	_, err := svc.AnalyzeRecommendation(context.Background(), 140, 0, 7, 15, time.Now(), 7)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if advisor.historical != nil {
		t.Error("advisor must not run on invalid input")
	}
}

func TestAnalyzeForecastTrainingFailure(t *testing.T) {
	fc := &fakeForecaster{err: NewError(ErrModelTrainingFailed, "Forecast model training failed: no usable split")}
	svc := NewService(&fakeSource{}, fc, nil, testOptions())

	_, err := svc.AnalyzeForecast(context.Background(), 40, -74, time.Now(), 7)
	if !errors.Is(err, ErrModelTrainingFailed) {
		t.Fatalf("expected ErrModelTrainingFailed, got %v", err)
	}
	if errors.Is(err, ErrDataUnavailable) {
		t.Error("training failure must stay distinct from data unavailability")
	}
}
