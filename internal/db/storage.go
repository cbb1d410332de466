package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	CollectionTeams    = "teams"
	CollectionUsers    = "users"
	CollectionChannels = "channels"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrMissingID = errors.New("record has no id")
	ErrInvalidID = errors.New("invalid record id")
)

// Record is a JSON document with a required string "id" field.
type Record map[string]interface{}

func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Collection is the storage contract shared by every backend.
type Collection interface {
	// Get returns ErrNotFound for an absent id.
	Get(ctx context.Context, id string) (Record, error)
	// Save upserts the record under its id.
	Save(ctx context.Context, rec Record) error
	// All returns every record keyed by id. When some records cannot be
	// fetched the map holds the rest and the error is a *PartialError.
	All(ctx context.Context) (map[string]Record, error)
}

type Storage struct {
	Teams    Collection
	Users    Collection
	Channels Collection

	close func(ctx context.Context) error
}

func (s *Storage) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

type StorageError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PartialError lists the ids whose fetch failed during All.
type PartialError struct {
	Collection string
	Failed     map[string]error
}

func (e *PartialError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("storage all %s: %d record(s) failed: %s", e.Collection, len(ids), strings.Join(ids, ", "))
}

func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// Encode converts a typed value with an `json:"id"` field into a Record.
func Encode(v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Decode fills v from rec. Numeric fields survive backends that return
// float64 (JSON) or int32/int64 (BSON).
func Decode(rec Record, v interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func checkID(id string) error {
	if id == "" {
		return ErrMissingID
	}
	// a leading dot would collide with hidden and temp files in the fs backend
	if strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	return nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("record is not a JSON object")
	}
	return rec, nil
}
