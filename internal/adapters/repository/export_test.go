package repository

import "context"

// Truncate empties every table; used by the postgres contract test.
func Truncate(ctx context.Context, s Store) error {
	sqlStore, ok := s.(*SQLStore)
	if !ok {
		return nil
	}
	for _, table := range []string{"rating_changes", "matches", "players"} {
		if _, err := sqlStore.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
