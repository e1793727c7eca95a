package kv

import (
	"errors"
	"slices"
	"sync"

	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/downloaders"

	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("no task found for the given key")

// In-Memory Thread-Safe ordered Key-Value Storage with optional persistence.
// Iteration follows insertion order.
type Store struct {
	table map[string]downloaders.Downloader
	order []string
	mu    sync.RWMutex
	db    *bolt.DB
}

// NewStore accepts a nil db, in which case Persist and Restore do nothing.
func NewStore(db *bolt.DB) (*Store, error) {
	if db != nil {
		err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(sessionBucket)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	return &Store{
		table: make(map[string]downloaders.Downloader),
		db:    db,
	}, nil
}

// Get a task given its id
func (m *Store) Get(id string) (downloaders.Downloader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.table[id]
	if !ok {
		return nil, ErrNotFound
	}

	return entry, nil
}

// Store a task and return its id
func (m *Store) Set(d downloaders.Downloader) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.table[d.GetId()]; !ok {
		m.order = append(m.order, d.GetId())
	}
	m.table[d.GetId()] = d

	return d.GetId()
}

// Delete removes a task, reporting whether it was present
func (m *Store) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.table[id]; !ok {
		return false
	}

	delete(m.table, id)
	m.order = slices.DeleteFunc(m.order, func(k string) bool { return k == id })
	return true
}

// DeleteIf removes the task only when pred holds, atomically with respect to
// other store operations.
func (m *Store) DeleteIf(id string, pred func(downloaders.Downloader) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.table[id]
	if !ok {
		return false, ErrNotFound
	}
	if !pred(d) {
		return false, nil
	}

	delete(m.table, id)
	m.order = slices.DeleteFunc(m.order, func(k string) bool { return k == id })
	return true, nil
}

func (m *Store) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.order)
}

// Values returns the stored tasks in insertion order
func (m *Store) Values() []downloaders.Downloader {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]downloaders.Downloader, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.table[id])
	}
	return out
}

// Returns a snapshot of every stored task in insertion order
func (m *Store) All() []internal.TaskSnapshot {
	values := m.Values()

	running := make([]internal.TaskSnapshot, 0, len(values))
	for _, v := range values {
		running = append(running, v.Status())
	}

	return running
}

func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}
