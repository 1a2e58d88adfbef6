// Package store adapts partitioned key-value table backends to a single
// contract addressed by (partition key, row key).
//
// Operations are atomic for a single entity only. Nothing spans two entities
// or two partitions, so any cross-entity invariant must be checked by the
// caller and is advisory.
package store

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrNotFound means no entity exists at the requested key.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists means Create hit an existing key.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrUnavailable wraps any failure of the underlying store. It is surfaced
	// to callers without retries.
	ErrUnavailable = errors.New("store unavailable")
)

// Key is the composite address of an entity.
type Key struct {
	PartitionKey string
	RowKey       string
}

// Validate reports whether both halves of the key are set.
func (k Key) Validate() error {
	if k.PartitionKey == "" || k.RowKey == "" {
		return errors.New("partition key and row key are required")
	}
	return nil
}

// Fields holds an entity's attributes. Values must be JSON-representable;
// every backend stores them as a JSON object, so numbers come back as float64.
type Fields map[string]any

// Entity is a stored record.
type Entity struct {
	Key    Key
	Fields Fields
}

// Predicate filters entities returned by QueryPartition. A nil predicate
// accepts everything.
type Predicate func(Entity) bool

// Table is one named collection inside a store.
type Table interface {
	// Get returns the entity at key or ErrNotFound.
	Get(ctx context.Context, key Key) (Entity, error)
	// QueryPartition lazily yields the entities of one partition that satisfy
	// pred. Ordering is unspecified. Each call starts a fresh scan.
	QueryPartition(ctx context.Context, partitionKey string, pred Predicate) iter.Seq2[Entity, error]
	// Create inserts a new entity or returns ErrAlreadyExists.
	Create(ctx context.Context, entity Entity) error
	// MergeUpdate overwrites the named fields of an existing entity, leaving
	// the others untouched, or returns ErrNotFound.
	MergeUpdate(ctx context.Context, key Key, delta Fields) error
}

// Store hands out tables and reports backend health.
type Store interface {
	Table(name string) Table
	Ping(ctx context.Context) error
}

// First returns the first entity yielded by seq, or ErrNotFound when the
// sequence is empty.
func First(seq iter.Seq2[Entity, error]) (Entity, error) {
	for e, err := range seq {
		if err != nil {
			return Entity{}, err
		}
		return e, nil
	}
	return Entity{}, ErrNotFound
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Entity, error]) ([]Entity, error) {
	var out []Entity
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
