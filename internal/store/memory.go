package store

import (
	"context"
	"iter"
	"sync"
)

// MemoryStore keeps tables in process memory. Entities are held as encoded
// JSON so values round-trip exactly as they do through the network backends.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
}

// NewMemory builds an empty in-memory store for development and tests.
func NewMemory() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memoryTable)}
}

// Table returns the named table, creating it on first use.
func (s *MemoryStore) Table(name string) Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		t = &memoryTable{partitions: make(map[string]map[string][]byte)}
		s.tables[name] = t
	}
	return t
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

type memoryTable struct {
	mu         sync.RWMutex
	partitions map[string]map[string][]byte
}

func (t *memoryTable) Get(_ context.Context, key Key) (Entity, error) {
	t.mu.RLock()
	raw, ok := t.partitions[key.PartitionKey][key.RowKey]
	t.mu.RUnlock()
	if !ok {
		return Entity{}, ErrNotFound
	}
	f, err := unmarshalFields(raw)
	if err != nil {
		return Entity{}, err
	}
	return Entity{Key: key, Fields: f}, nil
}

func (t *memoryTable) QueryPartition(ctx context.Context, partitionKey string, pred Predicate) iter.Seq2[Entity, error] {
	return func(yield func(Entity, error) bool) {
		t.mu.RLock()
		rows := make(map[string][]byte, len(t.partitions[partitionKey]))
		for rk, raw := range t.partitions[partitionKey] {
			rows[rk] = raw
		}
		t.mu.RUnlock()

		for rk, raw := range rows {
			if err := ctx.Err(); err != nil {
				yield(Entity{}, err)
				return
			}
			f, err := unmarshalFields(raw)
			if err != nil {
				yield(Entity{}, err)
				return
			}
			e := Entity{Key: Key{PartitionKey: partitionKey, RowKey: rk}, Fields: f}
			if pred != nil && !pred(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (t *memoryTable) Create(_ context.Context, entity Entity) error {
	if err := entity.Key.Validate(); err != nil {
		return err
	}
	raw, err := marshalFields(entity.Fields)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, ok := t.partitions[entity.Key.PartitionKey]
	if !ok {
		rows = make(map[string][]byte)
		t.partitions[entity.Key.PartitionKey] = rows
	}
	if _, exists := rows[entity.Key.RowKey]; exists {
		return ErrAlreadyExists
	}
	rows[entity.Key.RowKey] = raw
	return nil
}

func (t *memoryTable) MergeUpdate(_ context.Context, key Key, delta Fields) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	raw, ok := t.partitions[key.PartitionKey][key.RowKey]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergeRaw(raw, delta)
	if err != nil {
		return err
	}
	t.partitions[key.PartitionKey][key.RowKey] = merged
	return nil
}

// mergeRaw applies delta to an encoded field set and re-encodes it.
func mergeRaw(raw []byte, delta Fields) ([]byte, error) {
	current, err := unmarshalFields(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range delta {
		current[k] = v
	}
	return marshalFields(current)
}
