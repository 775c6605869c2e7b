package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fintrackhq/fintrack/internal/model"
)

// Hook caches one user's transactions and summary and keeps the cache
// coherent across reloads and mutations. It is the server-side analogue
// of a UI data hook: reads degrade to empty data instead of failing,
// writes surface their errors and trigger a resync.
//
// All methods are safe for concurrent use.
type Hook struct {
	client *Client
	userID string

	// loadSeq orders concurrent LoadData calls. A finished load installs
	// its result only if no newer load has been issued since, so a slow
	// stale response can never overwrite fresher data.
	loadSeq atomic.Uint64

	mu           sync.RWMutex
	transactions []*model.Transaction
	summary      model.Summary
	isLoading    bool
}

func NewHook(c *Client, userID string) *Hook {
	return &Hook{
		client:       c,
		userID:       userID,
		transactions: []*model.Transaction{},
	}
}

// Transactions returns the cached transaction list, newest first.
func (h *Hook) Transactions() []*model.Transaction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*model.Transaction, len(h.transactions))
	copy(out, h.transactions)
	return out
}

// Summary returns the cached balance aggregates.
func (h *Hook) Summary() model.Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.summary
}

// IsLoading reports whether a LoadData call is in flight.
func (h *Hook) IsLoading() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isLoading
}

// LoadData refreshes the cache. The list and summary fetches run
// concurrently and the cache is updated only after both finish, so a
// reader never observes a half-refreshed state. A failed fetch degrades
// its half to empty data rather than propagating the error.
func (h *Hook) LoadData(ctx context.Context) {
	if h.userID == "" {
		return
	}

	seq := h.loadSeq.Add(1)

	h.mu.Lock()
	h.isLoading = true
	h.mu.Unlock()

	var (
		wg      sync.WaitGroup
		txns    []*model.Transaction
		summary *model.Summary
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		txns, _ = h.client.Transactions(ctx, h.userID)
	}()
	go func() {
		defer wg.Done()
		summary, _ = h.client.Summary(ctx, h.userID)
	}()
	wg.Wait()

	if txns == nil {
		txns = []*model.Transaction{}
	}
	if summary == nil {
		summary = &model.Summary{}
	}

	h.installLoad(seq, txns, summary)
}

// installLoad commits a finished load if it is still the latest issued.
// The sequence check happens under the same lock as the assignment;
// checking first and locking after would leave a window for a newer load
// to install in between and then be overwritten by the stale one.
func (h *Hook) installLoad(seq uint64, txns []*model.Transaction, summary *model.Summary) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.loadSeq.Load() != seq {
		// a newer load owns the cache now, drop this result
		return false
	}

	h.transactions = txns
	h.summary = *summary
	h.isLoading = false
	return true
}

// AddTransaction records a new transaction and resyncs the cache. Unlike
// reads, the write error is returned to the caller.
func (h *Hook) AddTransaction(ctx context.Context, in CreateTransactionInput) error {
	if _, err := h.client.CreateTransaction(ctx, h.userID, in); err != nil {
		return err
	}
	h.LoadData(ctx)
	return nil
}

// DeleteTransaction removes a transaction and resyncs the cache.
func (h *Hook) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := h.client.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	h.LoadData(ctx)
	return nil
}
