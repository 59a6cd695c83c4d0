package feed

import (
	"context"
	"sync"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// Batcher coalesces inbound ticks on a fixed cadence so the downstream
// price state is updated at a bounded rate regardless of how bursty the
// stream is. Coalescing is last-write-wins: within one batch window only
// the most recent message counts, the rest are discarded. Messages are
// never merged.
type Batcher struct {
	interval time.Duration
	apply    func(domain.PriceSnapshot)

	mu  sync.Mutex
	buf []domain.PriceSnapshot
}

// NewBatcher creates a Batcher that emits at most one snapshot per
// interval to apply.
func NewBatcher(interval time.Duration, apply func(domain.PriceSnapshot)) *Batcher {
	return &Batcher{
		interval: interval,
		apply:    apply,
	}
}

// Add buffers one validated snapshot for the current batch window.
func (b *Batcher) Add(snap domain.PriceSnapshot) {
	b.mu.Lock()
	b.buf = append(b.buf, snap)
	b.mu.Unlock()
}

// Run flushes on every timer tick until ctx is cancelled. An empty buffer
// at a tick emits nothing.
func (b *Batcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Flush()
		}
	}
}

// Flush emits the latest buffered snapshot, if any, and clears the
// buffer. The latest message is the one with the highest sequence number;
// snapshots without sequence (fallback-shaped input) fall back to arrival
// order.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if len(b.buf) == 0 {
		b.mu.Unlock()
		return
	}
	latest := b.buf[len(b.buf)-1]
	for _, snap := range b.buf {
		if snap.Sequence > latest.Sequence {
			latest = snap
		}
	}
	b.buf = b.buf[:0]
	b.mu.Unlock()

	b.apply(latest)
}
