package locking

import (
	"context"
	"sync"

	"github.com/go-petr/movement-engine/internal/domain"
	"golang.org/x/sync/semaphore"
)

// Table is an in-process Locker holding one binary semaphore per key.
//
// Entries are reference counted and dropped once no goroutine holds or waits on them.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewTable returns an empty lock table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Lock acquires key or fails with a ContentionError once ctx is done.
func (t *Table) Lock(ctx context.Context, key string) (Unlocker, error) {
	e := t.acquireEntry(key)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		t.releaseEntry(key)
		return nil, &domain.ContentionError{Key: key}
	}

	return &tableHandle{table: t, key: key, entry: e}, nil
}

// Len returns the number of keys currently held or awaited.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

func (t *Table) acquireEntry(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		t.entries[key] = e
	}

	e.refs++

	return e
}

func (t *Table) releaseEntry(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]

	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}

type tableHandle struct {
	once  sync.Once
	table *Table
	key   string
	entry *entry
}

func (h *tableHandle) Unlock(context.Context) error {
	h.once.Do(func() {
		h.entry.sem.Release(1)
		h.table.releaseEntry(h.key)
	})

	return nil
}
