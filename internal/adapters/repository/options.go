package repository

import "time"

// SQLOption applies a configuration option to the SQLStore.
type SQLOption func(*SQLStore)

// WithMaxOpenConns caps the connection pool. Ignored for SQLite, which
// always runs on a single connection.
func WithMaxOpenConns(n int) SQLOption {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpen = n
		}
	}
}

// WithConnMaxLifetime sets how long a pooled connection may be reused.
func WithConnMaxLifetime(d time.Duration) SQLOption {
	return func(s *SQLStore) {
		if d > 0 {
			s.connLife = d
		}
	}
}

// WithoutMigrations skips applying the embedded schema on open.
func WithoutMigrations() SQLOption {
	return func(s *SQLStore) {
		s.migrate = false
	}
}
