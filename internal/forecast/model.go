package forecast

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand"
	"time"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
)

// Config holds the forecast model hyperparameters and policy knobs.
type Config struct {
	Trees         int
	MaxDepth      int
	MinLeaf       int
	FeatureSubset int

	// TestFraction of samples held out for the MAE estimate.
	TestFraction float64

	// Seed makes fits reproducible.
	Seed int64

	// WidenPerDay grows the confidence band with day offset:
	// band = MAE * (1 + WidenPerDay*offset). Heuristic, not physics.
	WidenPerDay float64

	// TrainTimeout bounds a single training run.
	TrainTimeout time.Duration
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Trees:         50,
		MaxDepth:      6,
		MinLeaf:       5,
		FeatureSubset: 3,
		TestFraction:  0.2,
		Seed:          42,
		WidenPerDay:   0.15,
		TrainTimeout:  30 * time.Second,
	}
}

// TrainedModel owns the fitted regressor and scaler for one grid cell.
// Immutable after training; concurrent predicts share the snapshot.
type TrainedModel struct {
	GridKey   string  `json:"grid_key"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Forest *Forest `json:"forest"`
	Scaler Scaler  `json:"scaler"`

	MAE             float64   `json:"mae"`
	TrainingSamples int       `json:"training_samples"`
	TrainingPeriod  string    `json:"training_period"`
	TrainedAt       time.Time `json:"trained_at"`

	widenPerDay float64
}

// Train fits a random-forest temperature model on the cleaned daily
// series. The series must already have passed training validation.
func Train(ctx context.Context, coord analysis.Coordinate, series analysis.HistoricalSeries, cfg Config) (*TrainedModel, error) {
	x := make([][]float64, len(series))
	y := make([]float64, len(series))
	for i, obs := range series {
		x[i] = featureVector(coord, obs.Date)
		y[i] = obs.TemperatureC
	}

	// 80/20 shuffled split; the held-out slice only feeds the MAE.
	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(len(x))
	testSize := int(float64(len(x)) * cfg.TestFraction)
	if testSize < 1 {
		testSize = 1
	}
	trainSize := len(x) - testSize
	if trainSize < 2*cfg.MinLeaf {
		return nil, analysis.NewError(analysis.ErrInsufficientData,
			"Not enough historical data to train a forecast model.")
	}

	trainX := make([][]float64, 0, trainSize)
	trainY := make([]float64, 0, trainSize)
	testX := make([][]float64, 0, testSize)
	testY := make([]float64, 0, testSize)
	for i, p := range perm {
		if i < trainSize {
			trainX = append(trainX, x[p])
			trainY = append(trainY, y[p])
		} else {
			testX = append(testX, x[p])
			testY = append(testY, y[p])
		}
	}

	scaler := fitScaler(trainX)

	forest, err := fitForest(ctx, scaler.transformAll(trainX), trainY, forestConfig{
		trees:         cfg.Trees,
		maxDepth:      cfg.MaxDepth,
		minLeaf:       cfg.MinLeaf,
		featureSubset: cfg.FeatureSubset,
		seed:          cfg.Seed,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, analysis.NewError(analysis.ErrModelTrainingFailed,
				"Forecast model training timed out. Please try again later.")
		}
		return nil, analysis.NewError(analysis.ErrModelTrainingFailed,
			fmt.Sprintf("Forecast model training failed: %v", err))
	}

	mae := 0.0
	for i, row := range testX {
		pred := forest.Predict(scaler.transform(row))
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, analysis.NewError(analysis.ErrModelTrainingFailed,
				"Forecast model training produced non-finite predictions.")
		}
		mae += math.Abs(pred - testY[i])
	}
	mae /= float64(len(testX))

	return &TrainedModel{
		Latitude:        coord.Latitude,
		Longitude:       coord.Longitude,
		Forest:          forest,
		Scaler:          scaler,
		MAE:             mae,
		TrainingSamples: trainSize,
		TrainingPeriod:  series.YearRange(),
		TrainedAt:       time.Now().UTC(),
		widenPerDay:     cfg.WidenPerDay,
	}, nil
}

// Points yields one ForecastPoint per day from start, in ascending
// date order, bounded by horizonDays. The sequence is finite and
// single-use; callers materialize it before serialization.
func (m *TrainedModel) Points(start time.Time, horizonDays int) iter.Seq[analysis.ForecastPoint] {
	coord := analysis.Coordinate{Latitude: m.Latitude, Longitude: m.Longitude}
	return func(yield func(analysis.ForecastPoint) bool) {
		for offset := 0; offset < horizonDays; offset++ {
			date := start.AddDate(0, 0, offset)
			pred := m.Forest.Predict(m.Scaler.transform(featureVector(coord, date)))
			band := m.MAE * (1 + m.widenPerDay*float64(offset))

			p := analysis.ForecastPoint{
				Date:                  date.Format("2006-01-02"),
				PredictedTemperatureC: round2(pred),
				ConfidenceLower:       round2(pred - band),
				ConfidenceUpper:       round2(pred + band),
				DayOffset:             offset,
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Accuracy reports the held-out training accuracy for API metadata.
func (m *TrainedModel) Accuracy() analysis.ModelAccuracy {
	return analysis.ModelAccuracy{
		MeanAbsoluteError:  round2(m.MAE),
		TrainingDataPoints: m.TrainingSamples,
		TrainingPeriod:     m.TrainingPeriod,
	}
}

// setWidening restores the band policy on models loaded from the
// persisted cache, where only fitted state is stored.
func (m *TrainedModel) setWidening(widenPerDay float64) {
	m.widenPerDay = widenPerDay
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
