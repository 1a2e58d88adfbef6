package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aischool/aischool-backend/internal/store"
)

// Repository persists child profiles. Reads return inactive rows too; the
// visibility rule belongs to the Service.
type Repository interface {
	Create(ctx context.Context, p Profile) error
	Get(ctx context.Context, ownerID, id string) (Profile, error)
	List(ctx context.Context, ownerID string, keep func(Profile) bool) ([]Profile, error)
	Merge(ctx context.Context, ownerID, id string, delta store.Fields) error
}

type record struct {
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Age           int        `json:"age"`
	Grade         string     `json:"grade"`
	Avatar        string     `json:"avatar"`
	LearningGoals string     `json:"learning_goals"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActivity  *time.Time `json:"last_activity"`
	Progress      *string    `json:"progress"`
	IsActive      *bool      `json:"is_active"`
}

// TableRepository stores profiles in a table partitioned by owner id.
type TableRepository struct {
	table store.Table
}

// NewTableRepository builds a profile repository over table.
func NewTableRepository(table store.Table) *TableRepository {
	return &TableRepository{table: table}
}

func (r *TableRepository) Create(ctx context.Context, p Profile) error {
	active := p.IsActive
	progress := p.Progress
	fields, err := store.Encode(record{
		UserID:        p.OwnerID,
		Name:          p.Name,
		Age:           p.Age,
		Grade:         p.Grade,
		Avatar:        p.Avatar,
		LearningGoals: p.LearningGoals,
		CreatedAt:     p.CreatedAt.UTC(),
		LastActivity:  p.LastActivity,
		Progress:      &progress,
		IsActive:      &active,
	})
	if err != nil {
		return err
	}
	return r.table.Create(ctx, store.Entity{
		Key:    store.Key{PartitionKey: p.OwnerID, RowKey: p.ID},
		Fields: fields,
	})
}

func (r *TableRepository) Get(ctx context.Context, ownerID, id string) (Profile, error) {
	e, err := r.table.Get(ctx, store.Key{PartitionKey: ownerID, RowKey: id})
	if errors.Is(err, store.ErrNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return fromEntity(e)
}

// List returns the owner's profiles accepted by keep, in store order.
func (r *TableRepository) List(ctx context.Context, ownerID string, keep func(Profile) bool) ([]Profile, error) {
	out := make([]Profile, 0)
	for e, err := range r.table.QueryPartition(ctx, ownerID, nil) {
		if err != nil {
			return nil, err
		}
		p, err := fromEntity(e)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *TableRepository) Merge(ctx context.Context, ownerID, id string, delta store.Fields) error {
	err := r.table.MergeUpdate(ctx, store.Key{PartitionKey: ownerID, RowKey: id}, delta)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func fromEntity(e store.Entity) (Profile, error) {
	var rec record
	if err := store.Decode(e.Fields, &rec); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", e.Key.RowKey, err)
	}
	p := Profile{
		ID:            e.Key.RowKey,
		OwnerID:       e.Key.PartitionKey,
		Name:          rec.Name,
		Age:           rec.Age,
		Grade:         rec.Grade,
		Avatar:        rec.Avatar,
		LearningGoals: rec.LearningGoals,
		CreatedAt:     rec.CreatedAt,
		LastActivity:  rec.LastActivity,
		Progress:      defaultProgress,
		IsActive:      rec.IsActive == nil || *rec.IsActive,
	}
	if rec.Progress != nil {
		p.Progress = *rec.Progress
	}
	return p, nil
}
