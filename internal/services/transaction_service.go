package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/ledger"
)

// EventPublisher is implemented by *amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionStore is the subset of ledger.Store the service uses.
type TransactionStore interface {
	ledger.TransactionWriter
	ledger.TransactionLister
}

// TransactionService writes transactions to the store, then announces the
// change on the bus. Publishing is best effort: a failed publish is logged
// and the request still succeeds.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
	cache     *cache.LRUCache[[]core.Transaction]
}

// NewTransactionService accepts a nil publisher (no bus configured) and a nil
// cache (always read through).
func NewTransactionService(store TransactionStore, publisher EventPublisher, c *cache.LRUCache[[]core.Transaction]) *TransactionService {
	return &TransactionService{store: store, publisher: publisher, cache: c}
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(created.OwnerID)

	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated,
		created.OwnerID, created.ID, created.Date.Year(), created.Date.Month()))
	return created, nil
}

// Delete removes the owner's transaction and returns it. It returns
// ledger.ErrNotFound when the id does not belong to ownerID.
func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	removed, err := s.store.DeleteTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(ownerID)

	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionDeleted,
		ownerID, id, removed.Date.Year(), removed.Date.Month()))
	return removed, nil
}

// List returns the owner's transactions, served from cache when possible.
// Callers must not modify the returned slice. Writes invalidate the owner's
// entry after they reach the store.
func (s *TransactionService) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	load := func() ([]core.Transaction, error) {
		txs, err := s.store.ListTransactions(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		return txs, nil
	}
	if s.cache == nil {
		return load()
	}
	return s.cache.GetOrLoad(ownerID, load)
}

func (s *TransactionService) invalidate(ownerID string) {
	if s.cache != nil {
		s.cache.Delete(ownerID)
	}
}

func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "event", ev.Event)
		return
	}
	// detached so a client disconnect does not drop the event
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishTransactionEvent(pubCtx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", ev.Event,
			"transaction_id", ev.TransactionID,
			"error", err)
	}
}
