package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Store is the opaque string key-value store the ledger persists into.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a Store backend.
type Options struct {
	Driver      string
	RedisURL    string
	DatabaseURL string
	KeyPrefix   string
}

// Open connects the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverRedis:
		return NewRedis(ctx, opts.RedisURL, opts.KeyPrefix)
	case DriverPostgres:
		return NewPostgres(ctx, opts.DatabaseURL, opts.KeyPrefix)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
