// Package ledger owns the user's transaction list: it keeps the
// authoritative copy in memory, persists every change, and notifies
// listeners so derived views can be refreshed.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/models"
	"cashflow/internal/services/storage"
)

// ValueName is the named value the list is persisted under
const ValueName = "transactions"

// Listener is called after every committed change with the new revision
type Listener func(revision uint64)

// Ledger is a persisted, concurrency-safe list of transactions
type Ledger struct {
	backend   storage.Backend
	now       func() time.Time
	mu        sync.RWMutex
	items     []models.Transaction
	revision  uint64
	listeners []Listener
}

// New loads the saved list from backend. now supplies the reference time for
// normalising new entries.
func New(backend storage.Backend, now func() time.Time) (*Ledger, error) {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{backend: backend, now: now}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload replaces the in-memory list with what the backend holds
func (l *Ledger) Reload() error {
	var items []models.Transaction
	found, err := storage.LoadJSON(l.backend, ValueName, &items)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if !found {
		items = []models.Transaction{}
	}

	l.mu.Lock()
	l.items = items
	l.revision++
	rev := l.revision
	l.mu.Unlock()

	slog.Debug("Ledger loaded", "count", len(items), "found", found)
	l.notify(rev)
	return nil
}

// OnChange registers fn to be called after each change
func (l *Ledger) OnChange(fn Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Revision increases with every committed change
func (l *Ledger) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revision
}

// Snapshot returns a copy of the list together with its revision
func (l *Ledger) Snapshot() ([]models.Transaction, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Transaction, len(l.items))
	copy(out, l.items)
	return out, l.revision
}

// List returns transactions matching search, newest first
func (l *Ledger) List(search string) []models.Transaction {
	items, _ := l.Snapshot()
	return models.NewTransactionSet(items).
		FilterBySearch(search).
		SortByDateDesc().
		Transactions
}

// Get returns the transaction with the given id
func (l *Ledger) Get(id string) (models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.items[i], nil
	}
	return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
}

// Create normalises in, assigns a fresh id and appends it
func (l *Ledger) Create(in models.TransactionInput) (models.Transaction, error) {
	t, err := in.Normalize(uuid.NewString(), l.now())
	if err != nil {
		return models.Transaction{}, err
	}

	err = l.mutate(func(items []models.Transaction) ([]models.Transaction, error) {
		return append(items, t), nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	slog.Info("Transaction created", "id", t.ID, "amount", t.Amount, "planned", t.IsPlanned)
	return t, nil
}

// Update replaces the transaction with the given id, keeping the id
func (l *Ledger) Update(id string, in models.TransactionInput) (models.Transaction, error) {
	t, err := in.Normalize(id, l.now())
	if err != nil {
		return models.Transaction{}, err
	}

	err = l.mutate(func(items []models.Transaction) ([]models.Transaction, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
		}
		items[i] = t
		return items, nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	slog.Info("Transaction updated", "id", id)
	return t, nil
}

// Delete removes the transaction with the given id
func (l *Ledger) Delete(id string) error {
	err := l.mutate(func(items []models.Transaction) ([]models.Transaction, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	slog.Info("Transaction deleted", "id", id)
	return nil
}

// Append adds already-normalised transactions, e.g. from an import. Entries
// without an id get one. Every entry is validated before anything is stored,
// and an id already in the ledger is rejected.
func (l *Ledger) Append(transactions []models.Transaction) ([]models.Transaction, error) {
	added, err := prepareBatch(transactions)
	if err != nil {
		return nil, err
	}

	err = l.mutate(func(items []models.Transaction) ([]models.Transaction, error) {
		for _, t := range added {
			if indexOf(items, t.ID) >= 0 {
				return nil, duplicateID(t.ID)
			}
		}
		return append(items, added...), nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Transactions appended", "count", len(added))
	return added, nil
}

// Replace swaps the whole list. Entries without an id get one; every entry
// is validated and ids must be unique before anything is stored.
func (l *Ledger) Replace(transactions []models.Transaction) error {
	next, err := prepareBatch(transactions)
	if err != nil {
		return err
	}

	return l.mutate(func([]models.Transaction) ([]models.Transaction, error) {
		return next, nil
	})
}

// prepareBatch copies transactions, filling in missing ids, and checks each
// entry plus the uniqueness of ids within the batch
func prepareBatch(transactions []models.Transaction) ([]models.Transaction, error) {
	batch := make([]models.Transaction, len(transactions))
	seen := make(map[string]bool, len(transactions))
	for i, t := range transactions {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if seen[t.ID] {
			return nil, duplicateID(t.ID)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return nil, err
		}
		batch[i] = t
	}
	return batch, nil
}

func duplicateID(id string) error {
	return &models.ValidationError{ID: id, Field: "id", Value: id, Reason: "id is used by more than one transaction"}
}

// mutate applies change to a copy of the list, persists the result and only
// then commits it. A failed save leaves the in-memory list untouched.
func (l *Ledger) mutate(change func([]models.Transaction) ([]models.Transaction, error)) error {
	l.mu.Lock()

	working := make([]models.Transaction, len(l.items))
	copy(working, l.items)

	next, err := change(working)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	if err := storage.SaveJSON(l.backend, ValueName, next); err != nil {
		l.mu.Unlock()
		slog.Error("Failed to save transactions", "error", err)
		return fmt.Errorf("save transactions: %w", err)
	}

	l.items = next
	l.revision++
	rev := l.revision
	l.mu.Unlock()

	l.notify(rev)
	return nil
}

func (l *Ledger) notify(rev uint64) {
	l.mu.RLock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.RUnlock()

	for _, fn := range listeners {
		fn(rev)
	}
}

func (l *Ledger) indexOf(id string) int {
	return indexOf(l.items, id)
}

func indexOf(items []models.Transaction, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
