package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"scuttle/internal/reports"
)

type stubRunner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (runner *stubRunner) Run(ctx context.Context, guilds []reports.Guild) reports.BatchRun {
	runner.calls.Add(1)
	if runner.started != nil {
		runner.started <- struct{}{}
	}
	if runner.release != nil {
		select {
		case <-runner.release:
		case <-ctx.Done():
		}
	}
	return reports.BatchRun{Results: make([]reports.GuildResult, len(guilds))}
}

type stubGuard struct {
	acquired bool
	err      error
	keys     []string
}

func (guard *stubGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	guard.keys = append(guard.keys, key)
	return guard.acquired, guard.err
}

func snapshot() []reports.Guild {
	return []reports.Guild{{ID: "g1", Name: "One"}, {ID: "g2", Name: "Two"}}
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("every sunday", &stubRunner{}, snapshot, nil); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}

func TestDefaultSpecFiresSundayEvening(t *testing.T) {
	scheduler, err := New("", &stubRunner{}, snapshot, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer scheduler.Stop()

	entries := scheduler.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d cron entries, want 1", len(entries))
	}
	next := entries[0].Schedule.Next(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC))
	want := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next run = %v, want %v", next, want)
	}
}

func TestTickSkipsOverlappingRun(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	scheduler, err := New("", runner, snapshot, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer scheduler.Stop()

	done := make(chan struct{})
	go func() {
		scheduler.tick()
		close(done)
	}()
	<-runner.started

	// Second trigger while the first one is in flight
	scheduler.tick()
	if err := scheduler.TriggerNow(); !errors.Is(err, ErrBusy) {
		t.Errorf("TriggerNow() error = %v, want ErrBusy", err)
	}

	close(runner.release)
	<-done
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner called %d times, want 1", got)
	}

	// The next trigger runs again
	scheduler.tick()
	if got := runner.calls.Load(); got != 2 {
		t.Errorf("runner called %d times, want 2", got)
	}
}

func TestTickHonoursGuard(t *testing.T) {
	runner := &stubRunner{}
	guard := &stubGuard{acquired: false}
	scheduler, err := New("", runner, snapshot, guard)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer scheduler.Stop()
	scheduler.now = func() time.Time { return time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC) }

	scheduler.tick()
	if got := runner.calls.Load(); got != 0 {
		t.Errorf("runner called %d times, want 0", got)
	}
	if len(guard.keys) != 1 || guard.keys[0] != "scuttle:weekly-report:2024-03-10" {
		t.Errorf("guard keys = %v", guard.keys)
	}

	// A broken guard does not stop the run
	guard.err = errors.New("connection refused")
	scheduler.tick()
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner called %d times, want 1", got)
	}
}

func TestTriggerNowRunsInBackground(t *testing.T) {
	runner := &stubRunner{started: make(chan struct{}, 1)}
	scheduler, err := New("", runner, snapshot, &stubGuard{acquired: false})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := scheduler.TriggerNow(); err != nil {
		t.Fatalf("TriggerNow() error: %v", err)
	}
	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("run did not start")
	}
	scheduler.Stop()
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner called %d times, want 1", got)
	}
}

func TestRunOnce(t *testing.T) {
	runner := &stubRunner{}
	scheduler, err := New("", runner, snapshot, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer scheduler.Stop()

	run, err := scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if len(run.Results) != 2 {
		t.Errorf("got %d results, want 2", len(run.Results))
	}
}

func TestTriggerNowAfterStop(t *testing.T) {
	runner := &stubRunner{}
	scheduler, err := New("", runner, snapshot, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	scheduler.Stop()

	if err := scheduler.TriggerNow(); !errors.Is(err, ErrStopped) {
		t.Fatalf("TriggerNow() error = %v, want ErrStopped", err)
	}
	scheduler.tick()
	if got := runner.calls.Load(); got != 0 {
		t.Errorf("runner called %d times after Stop", got)
	}
	// A refused trigger does not leave the scheduler busy
	if _, err := scheduler.RunOnce(context.Background()); err != nil {
		t.Errorf("RunOnce() error = %v", err)
	}
}

func TestTriggerNowDuringStop(t *testing.T) {
	runner := &stubRunner{}
	scheduler, err := New("", runner, snapshot, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if err := scheduler.TriggerNow(); errors.Is(err, ErrStopped) {
				return
			}
		}
	}()
	scheduler.Stop()
	<-done
}
