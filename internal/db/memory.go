package db

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryCollection keeps records as JSON so callers never share maps with
// the store.
type MemoryCollection struct {
	name string
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name, data: make(map[string][]byte)}
}

func NewMemoryStorage() *Storage {
	return &Storage{
		Teams:    NewMemoryCollection(CollectionTeams),
		Users:    NewMemoryCollection(CollectionUsers),
		Channels: NewMemoryCollection(CollectionChannels),
	}
}

func (m *MemoryCollection) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	raw, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: m.name, ID: id, Err: err}
	}
	return rec, nil
}

func (m *MemoryCollection) Save(_ context.Context, rec Record) error {
	id := rec.ID()
	if err := checkID(id); err != nil {
		return &StorageError{Op: "save", Collection: m.name, ID: id, Err: err}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "save", Collection: m.name, ID: id, Err: err}
	}
	m.mu.Lock()
	m.data[id] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryCollection) All(ctx context.Context) (map[string]Record, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for id := range m.data {
		keys = append(keys, id)
	}
	m.mu.RUnlock()
	return fetchAll(ctx, m.name, keys, 0, m.Get)
}
