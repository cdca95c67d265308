package service

import (
	"log/slog"
	"time"
)

// HousekeepingService periodically prunes idle login throttle entries so the
// map does not grow with every username ever tried.
type HousekeepingService struct {
	Throttle *LoginThrottle
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to five minutes.
func NewHousekeepingService(throttle *LoginThrottle, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Throttle: throttle,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Debug("housekeeping started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Debug("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	if s.Throttle == nil {
		return
	}
	removed := s.Throttle.Prune()
	s.Logger.Debug("pruned idle login limiters", "removed", removed, "tracked", s.Throttle.Len())
}
