package infra

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aischool/aischool-backend/internal/store"
)

// OpenStore connects to the table store named by the connection descriptor.
// Supported schemes are memory, redis, rediss, postgres and postgresql. The
// returned close func releases the underlying client.
func OpenStore(ctx context.Context, descriptor string) (store.Store, func(), error) {
	if descriptor == "" {
		return nil, nil, fmt.Errorf("store connection descriptor is required")
	}
	u, err := url.Parse(descriptor)
	if err != nil {
		return nil, nil, fmt.Errorf("parse store url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "redis", "rediss":
		client, err := NewRedisClient(ctx, descriptor, "store")
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(client), func() { _ = client.Close() }, nil
	case "postgres", "postgresql":
		pool, err := NewPostgresPool(ctx, descriptor)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}
