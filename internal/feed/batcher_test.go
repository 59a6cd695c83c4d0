package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

type applyRecorder struct {
	mu      sync.Mutex
	applied []domain.PriceSnapshot
}

func (r *applyRecorder) apply(snap domain.PriceSnapshot) {
	r.mu.Lock()
	r.applied = append(r.applied, snap)
	r.mu.Unlock()
}

func (r *applyRecorder) snapshots() []domain.PriceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PriceSnapshot(nil), r.applied...)
}

func TestBatcherFlushCoalescesToLatest(t *testing.T) {
	rec := &applyRecorder{}
	b := NewBatcher(50*time.Millisecond, rec.apply)

	b.Add(domain.PriceSnapshot{Price: 100, Sequence: 1})
	b.Add(domain.PriceSnapshot{Price: 101, Sequence: 2})
	b.Add(domain.PriceSnapshot{Price: 102, Sequence: 3})
	b.Flush()

	applied := rec.snapshots()
	if len(applied) != 1 {
		t.Fatalf("want exactly 1 snapshot applied, got %d", len(applied))
	}
	if applied[0].Sequence != 3 || applied[0].Price != 102 {
		t.Errorf("want the latest snapshot (seq 3, price 102), got %+v", applied[0])
	}
}

func TestBatcherFlushPrefersHighestSequence(t *testing.T) {
	rec := &applyRecorder{}
	b := NewBatcher(50*time.Millisecond, rec.apply)

	// Arrival order disagrees with sequence order.
	b.Add(domain.PriceSnapshot{Price: 102, Sequence: 3})
	b.Add(domain.PriceSnapshot{Price: 100, Sequence: 1})
	b.Flush()

	applied := rec.snapshots()
	if len(applied) != 1 || applied[0].Sequence != 3 {
		t.Fatalf("want the highest-sequence snapshot, got %+v", applied)
	}
}

func TestBatcherEmptyFlushEmitsNothing(t *testing.T) {
	rec := &applyRecorder{}
	b := NewBatcher(50*time.Millisecond, rec.apply)

	b.Flush()
	if got := rec.snapshots(); len(got) != 0 {
		t.Fatalf("empty flush must emit nothing, got %+v", got)
	}
}

func TestBatcherFlushClearsBuffer(t *testing.T) {
	rec := &applyRecorder{}
	b := NewBatcher(50*time.Millisecond, rec.apply)

	b.Add(domain.PriceSnapshot{Price: 100, Sequence: 1})
	b.Flush()
	b.Flush()

	if got := rec.snapshots(); len(got) != 1 {
		t.Fatalf("a flushed snapshot must not be re-emitted, got %d applies", len(got))
	}
}

func TestBatcherRunFlushesOnCadence(t *testing.T) {
	rec := &applyRecorder{}
	b := NewBatcher(10*time.Millisecond, rec.apply)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	b.Add(domain.PriceSnapshot{Price: 100, Sequence: 1})

	deadline := time.After(time.Second)
	for len(rec.snapshots()) == 0 {
		select {
		case <-deadline:
			t.Fatal("batcher never flushed on its timer")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("want context.Canceled on shutdown, got %v", err)
	}
}
