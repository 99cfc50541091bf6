package maintenance

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rubiojr/textboard/pkg/db"
	"github.com/rubiojr/textboard/pkg/storage"
)

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (c *countingSource) RoutineMaintenanceSteps() []storage.MaintenanceStep {
	return []storage.MaintenanceStep{{
		Name: "count",
		Run: func(context.Context) error {
			c.calls.Add(1)
			return c.err
		},
	}}
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	src := &countingSource{}
	s := NewScheduler(src, 10*time.Millisecond)

	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(t.Context()); err == nil {
		t.Error("expected error starting a running scheduler")
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Runs() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if s.Runs() < 2 {
		t.Fatalf("expected at least 2 runs, got %d", s.Runs())
	}
	after := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if src.calls.Load() != after {
		t.Error("scheduler kept running after Stop")
	}

	// Stop is idempotent.
	s.Stop()
}

func TestSchedulerDisabled(t *testing.T) {
	src := &countingSource{}
	s := NewScheduler(src, 0)
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	if src.calls.Load() != 0 {
		t.Errorf("disabled scheduler ran %d times", src.calls.Load())
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	src := &countingSource{}
	s := NewScheduler(src, time.Hour)
	ctx, cancel := context.WithCancel(t.Context())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestRunOnceSurvivesFailures(t *testing.T) {
	src := &countingSource{err: errors.New("disk full")}
	s := NewScheduler(src, time.Hour)
	s.RunOnce(t.Context())
	if s.Runs() != 1 || src.calls.Load() != 1 {
		t.Errorf("runs=%d calls=%d, want 1 and 1", s.Runs(), src.calls.Load())
	}
}

func TestRunOnceAgainstStore(t *testing.T) {
	conn, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "maint.db"))
	if err != nil {
		t.Fatalf("OpenAndMigrate failed: %v", err)
	}
	defer conn.Close()

	s := NewScheduler(storage.New(conn), time.Hour)
	s.RunOnce(t.Context())
	if s.Runs() != 1 {
		t.Errorf("expected one run, got %d", s.Runs())
	}
}
