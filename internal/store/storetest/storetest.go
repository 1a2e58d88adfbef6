// Package storetest holds behaviour checks every store.Table backend must pass.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aischool/aischool-backend/internal/store"
)

// Run exercises s against the table contract. Each subtest uses a fresh
// table name so backends may share underlying storage.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	tests := map[string]func(*testing.T, store.Table){
		"create and get":            testCreateAndGet,
		"create duplicate":          testCreateDuplicate,
		"get missing":               testGetMissing,
		"merge update":              testMergeUpdate,
		"merge update missing":      testMergeMissing,
		"query partition":           testQueryPartition,
		"query partition predicate": testQueryPredicate,
		"query empty partition":     testQueryEmpty,
		"query restartable":         testQueryRestartable,
		"query early stop":          testQueryEarlyStop,
		"concurrent merges":         testConcurrentMerges,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, s.Table("t"+uuid.NewString()[:8]))
		})
	}
	t.Run("tables are isolated", func(t *testing.T) {
		testTableIsolation(t, s)
	})
}

func key(pk, rk string) store.Key {
	return store.Key{PartitionKey: pk, RowKey: rk}
}

func testCreateAndGet(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	err := tbl.Create(ctx, store.Entity{Key: key("p1", "r1"), Fields: store.Fields{
		"name":      "Kid",
		"age":       7,
		"is_active": true,
		"progress":  "{}",
		"missing":   nil,
	}})
	require.NoError(t, err)

	got, err := tbl.Get(ctx, key("p1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, key("p1", "r1"), got.Key)
	assert.Equal(t, "Kid", got.Fields["name"])
	assert.Equal(t, float64(7), got.Fields["age"])
	assert.Equal(t, true, got.Fields["is_active"])
	assert.Equal(t, "{}", got.Fields["progress"])
	assert.Contains(t, got.Fields, "missing")
	assert.Nil(t, got.Fields["missing"])
}

func testCreateDuplicate(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	require.NoError(t, tbl.Create(ctx, store.Entity{Key: key("p1", "r1"), Fields: store.Fields{"v": "first"}}))

	err := tbl.Create(ctx, store.Entity{Key: key("p1", "r1"), Fields: store.Fields{"v": "second"}})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := tbl.Get(ctx, key("p1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, "first", got.Fields["v"])

	// Same row key under another partition is a different entity.
	require.NoError(t, tbl.Create(ctx, store.Entity{Key: key("p2", "r1"), Fields: store.Fields{"v": "other"}}))
}

func testGetMissing(t *testing.T, tbl store.Table) {
	_, err := tbl.Get(context.Background(), key("nope", "nope"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testMergeUpdate(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	require.NoError(t, tbl.Create(ctx, store.Entity{Key: key("p1", "r1"), Fields: store.Fields{
		"name": "Kid", "age": 7, "is_active": true,
	}}))

	require.NoError(t, tbl.MergeUpdate(ctx, key("p1", "r1"), store.Fields{"age": 8, "grade": "3rd"}))

	got, err := tbl.Get(ctx, key("p1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, "Kid", got.Fields["name"])
	assert.Equal(t, float64(8), got.Fields["age"])
	assert.Equal(t, "3rd", got.Fields["grade"])
	assert.Equal(t, true, got.Fields["is_active"])
}

func testMergeMissing(t *testing.T, tbl store.Table) {
	err := tbl.MergeUpdate(context.Background(), key("p1", "none"), store.Fields{"a": 1})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func seed(t *testing.T, tbl store.Table, pk string, rows map[string]bool) {
	t.Helper()
	for rk, active := range rows {
		require.NoError(t, tbl.Create(context.Background(), store.Entity{
			Key:    key(pk, rk),
			Fields: store.Fields{"is_active": active},
		}))
	}
}

func rowKeys(t *testing.T, entities []store.Entity) []string {
	t.Helper()
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Key.RowKey)
	}
	sort.Strings(out)
	return out
}

func testQueryPartition(t *testing.T, tbl store.Table) {
	seed(t, tbl, "owner-a", map[string]bool{"a1": true, "a2": false, "a3": true})
	seed(t, tbl, "owner-b", map[string]bool{"b1": true})

	got, err := store.Collect(tbl.QueryPartition(context.Background(), "owner-a", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, rowKeys(t, got))
	for _, e := range got {
		assert.Equal(t, "owner-a", e.Key.PartitionKey)
	}
}

func testQueryPredicate(t *testing.T, tbl store.Table) {
	seed(t, tbl, "owner-a", map[string]bool{"a1": true, "a2": false, "a3": true})

	active := func(e store.Entity) bool { return e.Fields["is_active"] == true }
	got, err := store.Collect(tbl.QueryPartition(context.Background(), "owner-a", active))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a3"}, rowKeys(t, got))
}

func testQueryEmpty(t *testing.T, tbl store.Table) {
	got, err := store.Collect(tbl.QueryPartition(context.Background(), "nobody", nil))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = store.First(tbl.QueryPartition(context.Background(), "nobody", nil))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testQueryRestartable(t *testing.T, tbl store.Table) {
	seed(t, tbl, "owner-a", map[string]bool{"a1": true, "a2": true})

	seq := tbl.QueryPartition(context.Background(), "owner-a", nil)
	first, err := store.Collect(seq)
	require.NoError(t, err)
	second, err := store.Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, rowKeys(t, first), rowKeys(t, second))
}

func testQueryEarlyStop(t *testing.T, tbl store.Table) {
	seed(t, tbl, "owner-a", map[string]bool{"a1": true, "a2": true, "a3": true})

	n := 0
	for _, err := range tbl.QueryPartition(context.Background(), "owner-a", nil) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func testConcurrentMerges(t *testing.T, tbl store.Table) {
	ctx := context.Background()
	require.NoError(t, tbl.Create(ctx, store.Entity{Key: key("p1", "r1"), Fields: store.Fields{"base": true}}))

	fields := []string{"f0", "f1", "f2", "f3"}
	var wg sync.WaitGroup
	errs := make(chan error, len(fields))
	for _, f := range fields {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()
			errs <- tbl.MergeUpdate(ctx, key("p1", "r1"), store.Fields{f: f})
		}(f)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil && !errors.Is(err, store.ErrUnavailable) {
			t.Fatalf("merge: %v", err)
		}
	}

	got, err := tbl.Get(ctx, key("p1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, true, got.Fields["base"])
}

func testTableIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := s.Table("iso" + uuid.NewString()[:8])
	b := s.Table("iso" + uuid.NewString()[:8])

	require.NoError(t, a.Create(ctx, store.Entity{Key: key("p", "r"), Fields: store.Fields{"v": 1}}))
	_, err := b.Get(ctx, key("p", "r"))
	require.ErrorIs(t, err, store.ErrNotFound)
}
