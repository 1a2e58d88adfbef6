package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aischool/aischool-backend/internal/logging"
	"github.com/aischool/aischool-backend/internal/store"
)

// Service manages child profiles scoped to their owning account.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a profile service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// isVisible is the soft-delete filter applied on every read path.
func isVisible(p Profile) bool {
	return p.IsActive
}

// Create validates d and stores a new active profile under ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, d Draft) (Profile, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Profile{}, invalid("name", "name and age are required")
	}
	if d.Age == nil {
		return Profile{}, invalid("age", "name and age are required")
	}
	age, err := coerceAge(d.Age)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Name:          name,
		Age:           age,
		Grade:         strings.TrimSpace(d.Grade),
		Avatar:        d.Avatar,
		LearningGoals: strings.TrimSpace(d.LearningGoals),
		CreatedAt:     s.now().UTC(),
		Progress:      defaultProgress,
		IsActive:      true,
	}
	if p.Avatar == "" {
		p.Avatar = defaultAvatar
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	s.logger.Info("profile created", slog.String("account_id", ownerID), slog.String("profile_id", p.ID))
	return p, nil
}

// ListActive returns the owner's visible profiles. An owner without profiles
// gets an empty slice.
func (s *Service) ListActive(ctx context.Context, ownerID string) ([]Profile, error) {
	profiles, err := s.repo.List(ctx, ownerID, isVisible)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// GetActive returns one visible profile. Soft-deleted profiles report
// ErrNotFound exactly like absent ones.
func (s *Service) GetActive(ctx context.Context, ownerID, id string) (Profile, error) {
	p, err := s.repo.Get(ctx, ownerID, id)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if !isVisible(p) {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Update applies the updatable fields of delta and returns the profile as
// stored afterwards.
func (s *Service) Update(ctx context.Context, ownerID, id string, delta Delta) (Profile, error) {
	fields, err := sanitize(delta)
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.GetActive(ctx, ownerID, id); err != nil {
		return Profile{}, err
	}
	if len(fields) > 0 {
		if err := s.repo.Merge(ctx, ownerID, id, fields); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Profile{}, ErrNotFound
			}
			return Profile{}, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.GetActive(ctx, ownerID, id)
}

// Delete soft-deletes a profile. The existence check does not apply the
// visibility filter, so deleting an already inactive profile succeeds.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.repo.Get(ctx, ownerID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load profile: %w", err)
	}
	if err := s.repo.Merge(ctx, ownerID, id, store.Fields{"is_active": false}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete profile: %w", err)
	}
	s.logger.Info("profile deleted", slog.String("account_id", ownerID), slog.String("profile_id", id))
	return nil
}

// sanitize keeps the updatable fields of delta and normalizes their values
// to the stored types.
func sanitize(delta Delta) (store.Fields, error) {
	out := store.Fields{}
	for _, field := range updatable {
		v, ok := delta[field]
		if !ok {
			continue
		}
		switch field {
		case "age":
			age, err := coerceAge(v)
			if err != nil {
				return nil, err
			}
			out[field] = age
		case "progress":
			progress, err := progressText(v)
			if err != nil {
				return nil, err
			}
			out[field] = progress
		default:
			str, ok := v.(string)
			if !ok {
				return nil, invalid(field, field+" must be a string")
			}
			if field != "avatar" {
				str = strings.TrimSpace(str)
			}
			if field == "name" && str == "" {
				return nil, invalid(field, "name cannot be empty")
			}
			out[field] = str
		}
	}
	return out, nil
}

// coerceAge accepts integral JSON numbers and base-10 strings within
// [MinAge, MaxAge].
func coerceAge(v any) (int, error) {
	notNumber := invalid("age", "age must be a valid number")
	var n int64
	switch a := v.(type) {
	case int:
		n = int64(a)
	case int64:
		n = a
	case float64:
		if math.IsNaN(a) || math.IsInf(a, 0) || a != math.Trunc(a) {
			return 0, notNumber
		}
		if a < MinAge || a > MaxAge {
			return 0, ageRange()
		}
		n = int64(a)
	case json.Number:
		parsed, err := a.Int64()
		if err != nil {
			return 0, notNumber
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
		if err != nil {
			return 0, notNumber
		}
		n = parsed
	default:
		return 0, notNumber
	}
	if n < MinAge || n > MaxAge {
		return 0, ageRange()
	}
	return int(n), nil
}

func ageRange() error {
	return invalid("age", fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge))
}

// progressText stores strings verbatim and any other JSON value as its
// compact encoding.
func progressText(v any) (string, error) {
	switch p := v.(type) {
	case string:
		return p, nil
	case nil:
		return defaultProgress, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", invalid("progress", "progress must be valid JSON")
	}
	return string(raw), nil
}
