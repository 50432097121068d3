package repository

import (
	"context"
	"strings"
)

// DriverMemory selects the in-memory store.
const DriverMemory = "memory"

// Open returns the Store for driver: "memory", "sqlite" or "postgres".
// dsn is ignored for the memory store.
func Open(ctx context.Context, driver, dsn string, opts ...SQLOption) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	default:
		return NewSQLStore(ctx, driver, dsn, opts...)
	}
}
