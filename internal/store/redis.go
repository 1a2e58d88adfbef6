package store

import (
	"context"
	"errors"
	"iter"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "tbl:"
	redisScanCount     = 100
	redisMergeAttempts = 3
)

// RedisStore maps each (table, partition) pair onto one Redis hash whose
// fields are row keys and whose values are the encoded entity.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore builds a store over an existing client. The caller owns the
// client's lifecycle.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Table returns a handle for the named table.
func (s *RedisStore) Table(name string) Table {
	return &RedisTable{client: s.client, name: name}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// RedisTable is a Table stored in Redis hashes.
type RedisTable struct {
	client redis.UniversalClient
	name   string
}

func (t *RedisTable) hashKey(partitionKey string) string {
	return redisKeyPrefix + t.name + ":" + partitionKey
}

// Get fetches one row with HGET.
func (t *RedisTable) Get(ctx context.Context, key Key) (Entity, error) {
	raw, err := t.client.HGet(ctx, t.hashKey(key.PartitionKey), key.RowKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, unavailable("get", err)
	}
	f, err := unmarshalFields(raw)
	if err != nil {
		return Entity{}, err
	}
	return Entity{Key: key, Fields: f}, nil
}

// QueryPartition walks the partition hash with HSCAN. HSCAN may repeat a
// field across cursor pages, so rows already yielded are skipped.
func (t *RedisTable) QueryPartition(ctx context.Context, partitionKey string, pred Predicate) iter.Seq2[Entity, error] {
	return func(yield func(Entity, error) bool) {
		it := t.client.HScan(ctx, t.hashKey(partitionKey), 0, "", redisScanCount).Iterator()
		seen := make(map[string]struct{})
		for it.Next(ctx) {
			rowKey := it.Val()
			if !it.Next(ctx) {
				break
			}
			raw := it.Val()
			if _, dup := seen[rowKey]; dup {
				continue
			}
			seen[rowKey] = struct{}{}

			f, err := unmarshalFields([]byte(raw))
			if err != nil {
				yield(Entity{}, err)
				return
			}
			e := Entity{Key: Key{PartitionKey: partitionKey, RowKey: rowKey}, Fields: f}
			if pred != nil && !pred(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Entity{}, unavailable("query partition", err))
		}
	}
}

// Create inserts with HSETNX so an existing row is never overwritten.
func (t *RedisTable) Create(ctx context.Context, entity Entity) error {
	if err := entity.Key.Validate(); err != nil {
		return err
	}
	raw, err := marshalFields(entity.Fields)
	if err != nil {
		return err
	}
	ok, err := t.client.HSetNX(ctx, t.hashKey(entity.Key.PartitionKey), entity.Key.RowKey, raw).Result()
	if err != nil {
		return unavailable("create", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// MergeUpdate reads, merges and writes the row inside a WATCH transaction.
// A concurrent writer aborts the transaction, which is retried a bounded
// number of times.
func (t *RedisTable) MergeUpdate(ctx context.Context, key Key, delta Fields) error {
	hk := t.hashKey(key.PartitionKey)
	merge := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, hk, key.RowKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		merged, err := mergeRaw(raw, delta)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, hk, key.RowKey, merged)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < redisMergeAttempts; attempt++ {
		err = t.client.Watch(ctx, merge, hk)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return unavailable("merge update", err)
	}
}
