package db

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FSCollection stores each record as <base>/<collection>/<id>.json.
type FSCollection struct {
	name  string
	dir   string
	limit int
}

func NewFSStorage(base string, concurrency int) (*Storage, error) {
	if base == "" {
		base = "./data"
	}
	s := &Storage{}
	for _, c := range []struct {
		name string
		dst  *Collection
	}{
		{CollectionTeams, &s.Teams},
		{CollectionUsers, &s.Users},
		{CollectionChannels, &s.Channels},
	} {
		dir := filepath.Join(base, c.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "open", Collection: c.name, Err: err}
		}
		*c.dst = &FSCollection{name: c.name, dir: dir, limit: concurrency}
	}
	return s, nil
}

func (f *FSCollection) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FSCollection) Get(_ context.Context, id string) (Record, error) {
	if err := checkID(id); err != nil {
		return nil, &StorageError{Op: "get", Collection: f.name, ID: id, Err: err}
	}
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: f.name, ID: id, Err: err}
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: f.name, ID: id, Err: err}
	}
	return rec, nil
}

func (f *FSCollection) Save(_ context.Context, rec Record) error {
	id := rec.ID()
	if err := checkID(id); err != nil {
		return &StorageError{Op: "save", Collection: f.name, ID: id, Err: err}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "save", Collection: f.name, ID: id, Err: err}
	}

	// write-then-rename so a crash never leaves a truncated record
	tmp, err := os.CreateTemp(f.dir, "."+id+".*.tmp")
	if err != nil {
		return &StorageError{Op: "save", Collection: f.name, ID: id, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "save", Collection: f.name, ID: id, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "save", Collection: f.name, ID: id, Err: err}
	}
	if err := os.Rename(tmp.Name(), f.path(id)); err != nil {
		return &StorageError{Op: "save", Collection: f.name, ID: id, Err: err}
	}
	return nil
}

func (f *FSCollection) All(ctx context.Context) (map[string]Record, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, &StorageError{Op: "all", Collection: f.name, Err: err}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return fetchAll(ctx, f.name, ids, f.limit, f.Get)
}
