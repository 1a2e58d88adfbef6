package store

import (
	"context"
	"errors"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore keeps every table in one `entities` relation keyed by
// (table_name, partition_key, row_key) with the fields in a JSONB column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store over an existing pool. The schema is
// installed by RunMigrations.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Table returns a handle for the named table.
func (s *PostgresStore) Table(name string) Table {
	return &PostgresTable{db: s.db, name: name}
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// PostgresTable is a Table backed by rows of the entities relation.
type PostgresTable struct {
	db   *pgxpool.Pool
	name string
}

// Get fetches one row by primary key.
func (t *PostgresTable) Get(ctx context.Context, key Key) (Entity, error) {
	var raw []byte
	err := t.db.QueryRow(ctx, `SELECT fields FROM entities
        WHERE table_name = $1 AND partition_key = $2 AND row_key = $3`,
		t.name, key.PartitionKey, key.RowKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

// QueryPartition streams the partition's rows from an open cursor.
func (t *PostgresTable) QueryPartition(ctx context.Context, partitionKey string, pred Predicate) iter.Seq2[Entity, error] {
	return func(yield func(Entity, error) bool) {
		rows, err := t.db.Query(ctx, `SELECT row_key, fields FROM entities
            WHERE table_name = $1 AND partition_key = $2`, t.name, partitionKey)
		if err != nil {
			yield(Entity{}, unavailable("query partition", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rowKey string
				raw    []byte
			)
			if err := rows.Scan(&rowKey, &raw); err != nil {
				yield(Entity{}, unavailable("query partition", err))
				return
			}
			f, err := unmarshalFields(raw)
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
		if err := rows.Err(); err != nil {
			yield(Entity{}, unavailable("query partition", err))
		}
	}
}

// Create inserts a row, relying on the primary key to reject duplicates.
func (t *PostgresTable) Create(ctx context.Context, entity Entity) error {
	if err := entity.Key.Validate(); err != nil {
		return err
	}
	raw, err := marshalFields(entity.Fields)
	if err != nil {
		return err
	}
	_, err = t.db.Exec(ctx, `INSERT INTO entities (table_name, partition_key, row_key, fields)
        VALUES ($1, $2, $3, $4::jsonb)`, t.name, entity.Key.PartitionKey, entity.Key.RowKey, raw)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return unavailable("create", err)
	}
	return nil
}

// MergeUpdate concatenates delta onto the stored JSONB object in one statement.
func (t *PostgresTable) MergeUpdate(ctx context.Context, key Key, delta Fields) error {
	raw, err := marshalFields(delta)
	if err != nil {
		return err
	}
	cmd, err := t.db.Exec(ctx, `UPDATE entities SET fields = fields || $4::jsonb, updated_at = now()
        WHERE table_name = $1 AND partition_key = $2 AND row_key = $3`,
		t.name, key.PartitionKey, key.RowKey, raw)
	if err != nil {
		return unavailable("merge update", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
