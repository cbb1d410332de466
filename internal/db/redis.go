package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisCollection stores JSON strings under <prefix>:<collection>:<id>.
type RedisCollection struct {
	name   string
	rdb    *redis.Client
	prefix string
	limit  int
}

func NewRedisStorage(ctx context.Context, rawURL, prefix string, concurrency int) (*Storage, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, &StorageError{Op: "open", Collection: "redis", Err: err}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, &StorageError{Op: "open", Collection: "redis", Err: err}
	}

	s := NewRedisStorageWithClient(rdb, prefix, concurrency)
	s.close = func(context.Context) error { return rdb.Close() }
	return s, nil
}

func NewRedisStorageWithClient(rdb *redis.Client, prefix string, concurrency int) *Storage {
	col := func(name string) *RedisCollection {
		return &RedisCollection{
			name:   name,
			rdb:    rdb,
			prefix: fmt.Sprintf("%s:%s:", prefix, name),
			limit:  concurrency,
		}
	}
	return &Storage{
		Teams:    col(CollectionTeams),
		Users:    col(CollectionUsers),
		Channels: col(CollectionChannels),
	}
}

func (c *RedisCollection) Get(ctx context.Context, id string) (Record, error) {
	if err := checkID(id); err != nil {
		return nil, &StorageError{Op: "get", Collection: c.name, ID: id, Err: err}
	}
	raw, err := c.rdb.Get(ctx, c.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: c.name, ID: id, Err: err}
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: c.name, ID: id, Err: err}
	}
	return rec, nil
}

func (c *RedisCollection) Save(ctx context.Context, rec Record) error {
	id := rec.ID()
	if err := checkID(id); err != nil {
		return &StorageError{Op: "save", Collection: c.name, ID: id, Err: err}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "save", Collection: c.name, ID: id, Err: err}
	}
	if err := c.rdb.Set(ctx, c.prefix+id, data, 0).Err(); err != nil {
		return &StorageError{Op: "save", Collection: c.name, ID: id, Err: err}
	}
	return nil
}

func (c *RedisCollection) All(ctx context.Context) (map[string]Record, error) {
	var ids []string
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return nil, &StorageError{Op: "all", Collection: c.name, Err: err}
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, c.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return fetchAll(ctx, c.name, ids, c.limit, c.Get)
}
