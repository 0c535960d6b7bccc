package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func (f *fakePruner) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.cutoffs...)
}

func TestModerationJanitor_SweepsOnStart(t *testing.T) {
	pruner := &fakePruner{}
	j := NewModerationJanitor(pruner, time.Hour, 48*time.Hour, nopLogger())
	j.now = fixedClock(testNow)

	j.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for len(pruner.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	j.Stop()

	calls := pruner.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one sweep, got %d", len(calls))
	}
	if want := testNow.Add(-48 * time.Hour); !calls[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", calls[0], want)
	}
}

func TestModerationJanitor_Defaults(t *testing.T) {
	j := NewModerationJanitor(&fakePruner{}, 0, 0, nopLogger())
	if j.interval != time.Hour || j.retention != 30*24*time.Hour {
		t.Errorf("unexpected defaults interval=%v retention=%v", j.interval, j.retention)
	}
	// Stop before Start must not block.
	j.Stop()
}

func TestModerationJanitor_ErrorIsLogged(t *testing.T) {
	pruner := &fakePruner{err: errors.New("mongo down")}
	j := NewModerationJanitor(pruner, time.Hour, time.Hour, nopLogger())
	j.sweep(context.Background())
	if len(pruner.calls()) != 1 {
		t.Fatal("sweep did not call the pruner")
	}
}
