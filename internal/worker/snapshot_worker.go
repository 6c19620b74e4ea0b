// Package worker runs the background side of financas: it consumes
// transaction events and keeps monthly summary snapshots current.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
)

type (
	// Consumer is implemented by *amqp.Client.
	Consumer interface {
		ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
	}

	// Processor is implemented by *services.SnapshotProcessor.
	Processor interface {
		HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error
		Rebuild(ctx context.Context, ownerID string) (int, error)
	}

	// OwnerLister is implemented by *storage.SQLiteRepository.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}
)

// SnapshotWorker applies events as they arrive. Owners whose event failed
// are retried with a full rebuild on the next sweep, so a poisoned month does
// not depend on the broker redelivering.
type SnapshotWorker struct {
	consumer      Consumer
	processor     Processor
	owners        OwnerLister
	sweepInterval time.Duration

	mu    sync.Mutex
	dirty map[string]struct{}
}

// NewSnapshotWorker accepts a nil owners, which skips the startup rebuild.
func NewSnapshotWorker(consumer Consumer, processor Processor, owners OwnerLister, sweepInterval time.Duration) *SnapshotWorker {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &SnapshotWorker{
		consumer:      consumer,
		processor:     processor,
		owners:        owners,
		sweepInterval: sweepInterval,
		dirty:         map[string]struct{}{},
	}
}

// HandleEvent processes one event and remembers the owner on failure.
func (w *SnapshotWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	if err := w.processor.HandleEvent(ctx, ev); err != nil {
		w.markDirty(ev.OwnerID)
		return err
	}
	return nil
}

// CatchUp rebuilds every known owner. Events published while the worker was
// down are lost, so Run calls it before consuming. A failed owner listing is
// logged and leaves the sweep to recover owners as their events arrive.
func (w *SnapshotWorker) CatchUp(ctx context.Context) int {
	if w.owners == nil {
		return 0
	}
	owners, err := w.owners.ListOwners(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list owners, skipping startup rebuild", "error", err)
		return 0
	}
	for _, o := range owners {
		w.markDirty(o)
	}
	n := w.Sweep(ctx)
	slog.InfoContext(ctx, "Startup rebuild finished", "owners", len(owners), "rebuilt", n)
	return n
}

// Run catches up, then consumes and sweeps until ctx is cancelled or the
// consumer fails.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	w.CatchUp(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.consumer.ConsumeTransactionEvents(ctx, w.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.Sweep(ctx)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Sweep rebuilds every dirty owner. Owners that fail again stay dirty.
func (w *SnapshotWorker) Sweep(ctx context.Context) int {
	w.mu.Lock()
	owners := make([]string, 0, len(w.dirty))
	for o := range w.dirty {
		owners = append(owners, o)
	}
	w.dirty = map[string]struct{}{}
	w.mu.Unlock()

	rebuilt := 0
	for _, owner := range owners {
		n, err := w.processor.Rebuild(ctx, owner)
		if err != nil {
			slog.ErrorContext(ctx, "Snapshot rebuild failed", "owner_id", owner, "error", err)
			w.markDirty(owner)
			continue
		}
		rebuilt++
		slog.InfoContext(ctx, "Snapshots rebuilt", "owner_id", owner, "months", n)
	}
	return rebuilt
}

// Pending returns how many owners await a rebuild.
func (w *SnapshotWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirty)
}

func (w *SnapshotWorker) markDirty(owner string) {
	w.mu.Lock()
	w.dirty[owner] = struct{}{}
	w.mu.Unlock()
}
