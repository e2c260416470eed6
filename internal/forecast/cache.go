package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/metrics"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/store"
)

// CacheOptions carries the cache and training-data policy.
type CacheOptions struct {
	// TTL after which a cached model is retrained.
	TTL time.Duration

	// GridResolution in degrees for the cache key, so nearby
	// coordinates share a model.
	GridResolution float64

	// Training series span and minimum size.
	StartYear     int
	EndYear       int
	MinTrainYears int
}

type cacheEntry struct {
	model     *TrainedModel
	expiresAt time.Time
}

// Cache is the per-grid-cell trained model cache. It implements
// analysis.Forecaster. Builds are deduplicated with singleflight so at
// most one training per key is in flight; readers always get an
// immutable model snapshot. Models are written through to the optional
// persistent store and reloaded on miss after a restart.
type Cache struct {
	source analysis.DataSource
	models *store.ModelStore // may be nil
	cfg    Config
	opts   CacheOptions

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group

	trainings atomic.Int64
}

// NewCache creates a model cache. models may be nil to disable
// persistence.
func NewCache(source analysis.DataSource, models *store.ModelStore, cfg Config, opts CacheOptions) *Cache {
	return &Cache{
		source:  source,
		models:  models,
		cfg:     cfg,
		opts:    opts,
		entries: make(map[string]cacheEntry),
	}
}

// gridKey rounds the coordinate to the configured grid resolution.
func (c *Cache) gridKey(coord analysis.Coordinate) string {
	res := c.opts.GridResolution
	if res <= 0 {
		res = 0.5
	}
	lat := math.Round(coord.Latitude/res) * res
	lon := math.Round(coord.Longitude/res) * res
	return fmt.Sprintf("%.2f:%.2f", lat, lon)
}

// Forecast returns the materialized N-day prediction for the
// coordinate, training a model on demand.
func (c *Cache) Forecast(ctx context.Context, coord analysis.Coordinate, start time.Time, horizonDays int) (*analysis.ForecastBundle, error) {
	model, err := c.getOrTrain(ctx, coord)
	if err != nil {
		return nil, err
	}

	points := slices.Collect(model.Points(start, horizonDays))
	return &analysis.ForecastBundle{
		Points:   points,
		Accuracy: model.Accuracy(),
	}, nil
}

// TrainingCount reports how many training runs this cache performed.
func (c *Cache) TrainingCount() int64 {
	return c.trainings.Load()
}

// getOrTrain resolves a model for the coordinate's grid cell: memory
// cache, then persisted store, then a deduplicated training run.
func (c *Cache) getOrTrain(ctx context.Context, coord analysis.Coordinate) (*TrainedModel, error) {
	key := c.gridKey(coord)

	if m := c.lookup(key); m != nil {
		metrics.ModelCacheHits.Inc()
		return m, nil
	}
	metrics.ModelCacheMisses.Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have finished the build while we queued.
		if m := c.lookup(key); m != nil {
			return m, nil
		}
		if m := c.loadPersisted(key); m != nil {
			c.put(key, m)
			return m, nil
		}
		return c.train(ctx, key, coord)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TrainedModel), nil
}

// lookup returns a non-expired cached model, or nil.
func (c *Cache) lookup(key string) *TrainedModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.model
}

func (c *Cache) put(key string, m *TrainedModel) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{model: m, expiresAt: time.Now().Add(c.opts.TTL)}
	c.mu.Unlock()
}

// loadPersisted tries the bbolt store for a model trained within TTL.
func (c *Cache) loadPersisted(key string) *TrainedModel {
	if c.models == nil {
		return nil
	}
	payload, storedAt, ok, err := c.models.Get(key)
	if err != nil {
		log.Printf("forecast: read persisted model %s: %v", key, err)
		return nil
	}
	if !ok || time.Since(storedAt) > c.opts.TTL {
		return nil
	}

	var m TrainedModel
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("forecast: decode persisted model %s: %v", key, err)
		return nil
	}
	m.setWidening(c.cfg.WidenPerDay)
	return &m
}

// train fetches the training series and fits a fresh model. The fetch
// honors the caller's context; the fit runs on a detached timeout so a
// client disconnect does not abort a build other callers will reuse.
func (c *Cache) train(ctx context.Context, key string, coord analysis.Coordinate) (*TrainedModel, error) {
	series, err := c.source.FetchDaily(ctx, coord, c.opts.StartYear, c.opts.EndYear)
	if err != nil {
		return nil, err
	}

	clean, err := analysis.ValidateForTraining(series, c.opts.MinTrainYears)
	if err != nil {
		return nil, err
	}

	trainCtx, cancel := context.WithTimeout(context.Background(), c.cfg.TrainTimeout)
	defer cancel()

	started := time.Now()
	model, err := Train(trainCtx, coord, clean, c.cfg)
	if err != nil {
		return nil, err
	}
	c.trainings.Add(1)
	metrics.ModelTrainingsTotal.Inc()
	metrics.ModelTrainingDuration.Observe(time.Since(started).Seconds())
	log.Printf("forecast: trained model for %s on %d samples (MAE %.2f°C) in %s",
		key, model.TrainingSamples, model.MAE, time.Since(started).Round(time.Millisecond))

	model.GridKey = key
	c.put(key, model)
	c.persist(key, model)
	return model, nil
}

func (c *Cache) persist(key string, m *TrainedModel) {
	if c.models == nil {
		return
	}
	payload, err := json.Marshal(m)
	if err != nil {
		log.Printf("forecast: encode model %s: %v", key, err)
		return
	}
	if err := c.models.Put(key, payload); err != nil {
		log.Printf("forecast: persist model %s: %v", key, err)
	}
}

// EvictExpired drops expired in-memory entries and prunes the
// persisted store. Safe to run concurrently with reads; in-flight
// callers keep the snapshots they already hold.
func (c *Cache) EvictExpired() {
	now := time.Now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.models != nil {
		if removed, err := c.models.DeleteOlderThan(now.Add(-c.opts.TTL)); err != nil {
			log.Printf("forecast: prune persisted models: %v", err)
		} else if removed > 0 {
			log.Printf("forecast: pruned %d expired persisted models", removed)
		}
	}
}

// Flush clears the in-memory cache. Persisted entries stay until they
// expire or the grid cell is retrained.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
