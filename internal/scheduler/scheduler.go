package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Prober checks upstream reachability for a coordinate.
type Prober interface {
	Probe(ctx context.Context, lat, lng float64) error
}

// Scheduler periodically probes the upstream weather API so that its health
// is visible in metrics between user requests.
type Scheduler struct {
	scheduler *gocron.Scheduler
	prober    Prober
	lat, lng  float64
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(interval, timeout time.Duration, lat, lng float64, prober Prober) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		prober:    prober,
		lat:       lat,
		lng:       lng,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the probe job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: probe interval not set; nothing to schedule")
		return nil
	}

	if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce performs a single probe.
func (s *Scheduler) RunOnce() {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.prober.Probe(ctx, s.lat, s.lng); err != nil {
		log.Printf("scheduler: upstream probe failed for %f,%f: %v", s.lat, s.lng, err)
		return
	}
	log.Printf("scheduler: upstream probe ok for %f,%f", s.lat, s.lng)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
