package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aischool/aischool-backend/internal/store"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	Get(ctx context.Context, email, id string) (Account, error)
	UpdateLastLogin(ctx context.Context, account Account, at time.Time) error
	SetActive(ctx context.Context, account Account, active bool) error
}

// record is the stored shape of an account. The email doubles as the
// partition key and the account id as the row key.
type record struct {
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	FullName     string     `json:"full_name"`
	PhoneNumber  string     `json:"phone_number"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
	IsActive     *bool      `json:"is_active"`
}

// TableRepository stores accounts in a partitioned table keyed by
// (email, account id).
type TableRepository struct {
	table store.Table
}

// NewTableRepository builds an account repository over table.
func NewTableRepository(table store.Table) *TableRepository {
	return &TableRepository{table: table}
}

func keyOf(a Account) store.Key {
	return store.Key{PartitionKey: a.Email, RowKey: a.ID}
}

// Create inserts a new account entity.
func (r *TableRepository) Create(ctx context.Context, a Account) error {
	active := a.IsActive
	fields, err := store.Encode(record{
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		FullName:     a.FullName,
		PhoneNumber:  a.PhoneNumber,
		CreatedAt:    a.CreatedAt.UTC(),
		LastLogin:    a.LastLogin,
		IsActive:     &active,
	})
	if err != nil {
		return err
	}
	return r.table.Create(ctx, store.Entity{Key: keyOf(a), Fields: fields})
}

// FindByEmail returns an account in the email's partition. When a
// registration race left more than one, which one is returned is unspecified.
func (r *TableRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	e, err := store.First(r.table.QueryPartition(ctx, email, nil))
	if errors.Is(err, store.ErrNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return fromEntity(e)
}

// Get fetches an account by its composite key.
func (r *TableRepository) Get(ctx context.Context, email, id string) (Account, error) {
	e, err := r.table.Get(ctx, store.Key{PartitionKey: email, RowKey: id})
	if errors.Is(err, store.ErrNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return fromEntity(e)
}

// UpdateLastLogin records a successful login time.
func (r *TableRepository) UpdateLastLogin(ctx context.Context, a Account, at time.Time) error {
	return r.merge(ctx, a, store.Fields{"last_login": at.UTC()})
}

// SetActive flips the account's login switch.
func (r *TableRepository) SetActive(ctx context.Context, a Account, active bool) error {
	return r.merge(ctx, a, store.Fields{"is_active": active})
}

func (r *TableRepository) merge(ctx context.Context, a Account, delta store.Fields) error {
	err := r.table.MergeUpdate(ctx, keyOf(a), delta)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func fromEntity(e store.Entity) (Account, error) {
	var rec record
	if err := store.Decode(e.Fields, &rec); err != nil {
		return Account{}, fmt.Errorf("decode account %s: %w", e.Key.RowKey, err)
	}
	a := Account{
		ID:           e.Key.RowKey,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		FullName:     rec.FullName,
		PhoneNumber:  rec.PhoneNumber,
		CreatedAt:    rec.CreatedAt,
		LastLogin:    rec.LastLogin,
		IsActive:     rec.IsActive == nil || *rec.IsActive,
	}
	if a.Email == "" {
		a.Email = e.Key.PartitionKey
	}
	return a, nil
}
