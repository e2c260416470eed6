package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/forecast"
)

// Scheduler periodically evicts expired trained models from the cache
// and prunes the persisted store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     *forecast.Cache
	interval  time.Duration
}

// New creates a new Scheduler.
func New(cache *forecast.Cache, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		cache:     cache,
		interval:  interval,
	}
}

// Start schedules the periodic sweep and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: sweeping expired forecast models")
		s.cache.EvictExpired()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
