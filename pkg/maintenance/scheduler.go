// Package maintenance runs database housekeeping on a schedule while the
// board is serving.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/textboard/pkg/log"
	"github.com/rubiojr/textboard/pkg/storage"
)

var logger = log.ForService("maintenance")

// StepSource returns the steps for one run. *storage.Store satisfies it
// through RoutineMaintenanceSteps.
type StepSource interface {
	RoutineMaintenanceSteps() []storage.MaintenanceStep
}

type Scheduler struct {
	source   StepSource
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runs    int
}

// NewScheduler creates a scheduler that runs the source's steps every
// interval. An interval of zero or less disables it.
func NewScheduler(source StepSource, interval time.Duration) *Scheduler {
	return &Scheduler{source: source, interval: interval}
}

// Start launches the schedule. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("maintenance scheduler is already running")
	}
	if s.interval <= 0 {
		logger.Infof("scheduled maintenance disabled")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	ticker := time.NewTicker(s.interval)

	s.wg.Add(1)
	go s.run(ctx, ticker)
	logger.Infof("scheduled maintenance every %v", s.interval)
	return nil
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debugf("maintenance context cancelled")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs one maintenance pass and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	logger.Infof("running database maintenance")
	start := time.Now()
	if err := storage.RunSteps(ctx, s.source.RoutineMaintenanceSteps()); err != nil {
		logger.Errorf("database maintenance failed: %v", err)
	} else {
		logger.Infof("database maintenance finished in %v", time.Since(start).Round(time.Millisecond))
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
}

// Runs reports how many passes have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stop cancels the schedule and waits for a pass in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}
