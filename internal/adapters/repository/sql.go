package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/okian/pong/internal/domain/model"
)

//go:embed schema.sql
var schema string

// Driver names accepted by NewSQLStore.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultMaxOpenConns = 20
	defaultConnLifetime = 45 * time.Minute
	sqliteBusyTimeoutMS = 5000
)

// dialect papers over the few differences between SQLite and Postgres.
type dialect struct {
	driverName string // database/sql driver
	numbered   bool   // $1 placeholders instead of ?
	binaryID   string // id column compared byte-wise
}

var dialects = map[string]dialect{ //nolint:gochecknoglobals
	DriverSQLite:   {driverName: "sqlite", binaryID: "p.id"},
	DriverPostgres: {driverName: "pgx", numbered: true, binaryID: `p.id COLLATE "C"`},
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store on SQLite (modernc.org/sqlite) or Postgres
// (pgx stdlib). Timestamps are stored as Unix nanoseconds so that ordering is
// numeric and identical on both engines.
type SQLStore struct {
	db       *sql.DB
	dialect  dialect
	maxOpen  int
	connLife time.Duration
	migrate  bool
}

// NewSQLStore opens dsn with the given driver ("sqlite" or "postgres"),
// verifies connectivity and applies the embedded schema.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLStore, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	s := &SQLStore{
		dialect:  d,
		maxOpen:  defaultMaxOpenConns,
		connLife: defaultConnLifetime,
		migrate:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	s.db = db

	if d.driverName == "sqlite" {
		// Single writer; also keeps a :memory: database on one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(s.maxOpen)
		db.SetMaxIdleConns(s.maxOpen / 2)
		db.SetConnMaxLifetime(s.connLife)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if d.driverName == "sqlite" {
		if err := s.applyPragmas(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if s.migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLStore) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = " + strconv.Itoa(sqliteBusyTimeoutMS),
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: sqlite %q: %w", p, err)
		}
	}
	return nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise.
func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("store: commit: %w", e)
		}
	}()
	return fn(tx)
}

func (s *SQLStore) q(query string) string { return s.dialect.rebind(query) }

func (s *SQLStore) CreatePlayer(ctx context.Context, p model.Player) (err error) {
	defer track("create_player")(&err)

	if err := checkPlayerTimes(p); err != nil {
		return fmt.Errorf("create player %s: %w", p.ID, err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO players (id, name, rating, joined_at, last_played_at)
		VALUES (?, ?, ?, ?, ?)`),
		p.ID, p.Name, p.Rating, toNanos(p.JoinedAt), nullNanos(p.LastPlayedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("create player %q: %w", p.Name, ErrPlayerExists)
	}
	if err != nil {
		return fmt.Errorf("create player %q: %w", p.Name, err)
	}
	return nil
}

const playerColumns = `id, name, rating, joined_at, last_played_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (model.Player, error) {
	var (
		p      model.Player
		joined int64
		played sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Rating, &joined, &played); err != nil {
		return model.Player{}, err
	}
	p.JoinedAt = fromNanos(joined)
	if played.Valid {
		p.LastPlayedAt = fromNanos(played.Int64)
	}
	return p, nil
}

func (s *SQLStore) Player(ctx context.Context, id string) (model.Player, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+playerColumns+` FROM players WHERE id = ?`), id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("player %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLStore) Players(ctx context.Context) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}
	defer rows.Close()

	var out []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("players: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const matchColumns = `id, player_a_id, player_b_id, winner_id, played_at`

func scanMatches(rows *sql.Rows) ([]model.Match, error) {
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var (
			m      model.Match
			played int64
		)
		if err := rows.Scan(&m.ID, &m.PlayerAID, &m.PlayerBID, &m.WinnerID, &played); err != nil {
			return nil, err
		}
		m.PlayedAt = fromNanos(played)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) Matches(ctx context.Context) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY played_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("matches: %w", err)
	}
	out, err := scanMatches(rows)
	if err != nil {
		return nil, fmt.Errorf("matches: %w", err)
	}
	return out, nil
}

func (s *SQLStore) MatchesFor(ctx context.Context, playerID string, limit int) ([]model.Match, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if err := s.ensurePlayer(ctx, s.db, playerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+matchColumns+` FROM matches
		WHERE player_a_id = ? OR player_b_id = ?
		ORDER BY played_at DESC, seq DESC
		LIMIT ?`), playerID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("matches of %s: %w", playerID, err)
	}
	out, err := scanMatches(rows)
	if err != nil {
		return nil, fmt.Errorf("matches of %s: %w", playerID, err)
	}
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) ensurePlayer(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, s.q(`SELECT 1 FROM players WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return err
}

func (s *SQLStore) RecordResult(ctx context.Context, r Result) (err error) {
	defer track("record_result")(&err)

	if err := checkResultTimes(r); err != nil {
		return fmt.Errorf("record match %s: %w", r.Match.ID, err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		updates := []struct {
			p    model.Player
			prev float64
		}{{r.PlayerA, r.PrevRatingA}, {r.PlayerB, r.PrevRatingB}}

		for _, u := range updates {
			res, err := tx.ExecContext(ctx, s.q(`
				UPDATE players SET rating = ?, last_played_at = ?
				WHERE id = ? AND rating = ?`),
				u.p.Rating, nullNanos(u.p.LastPlayedAt), u.p.ID, u.prev,
			)
			if err != nil {
				return fmt.Errorf("record match %s: update %s: %w", r.Match.ID, u.p.ID, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("record match %s: %w", r.Match.ID, err)
			} else if n == 0 {
				if err := s.ensurePlayer(ctx, tx, u.p.ID); err != nil {
					return fmt.Errorf("record match %s: %w", r.Match.ID, err)
				}
				return fmt.Errorf("record match %s: player %s: %w", r.Match.ID, u.p.ID, ErrConflict)
			}
		}

		// seq keeps insertion order for matches played at the same instant.
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM matches`).Scan(&seq); err != nil {
			return fmt.Errorf("record match %s: next seq: %w", r.Match.ID, err)
		}

		m := r.Match
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO matches (`+matchColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?)`),
			m.ID, m.PlayerAID, m.PlayerBID, m.WinnerID, toNanos(m.PlayedAt), seq,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("record match %s: %w", m.ID, ErrMatchExists)
		}
		if err != nil {
			return fmt.Errorf("record match %s: %w", m.ID, err)
		}

		for _, c := range r.Changes {
			_, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO rating_changes (id, player_id, match_id, rating, delta, k_factor, recorded_at, seq)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				c.ID, c.PlayerID, c.MatchID, c.Rating, c.Delta, c.KFactor, toNanos(c.RecordedAt), seq,
			)
			if err != nil {
				return fmt.Errorf("record match %s: rating change: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) RatingHistory(ctx context.Context, playerID string, limit int) ([]model.RatingChange, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if err := s.ensurePlayer(ctx, s.db, playerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, player_id, match_id, rating, delta, k_factor, recorded_at
		FROM rating_changes WHERE player_id = ?
		ORDER BY seq DESC
		LIMIT ?`), playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("rating history of %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []model.RatingChange
	for rows.Next() {
		var (
			c        model.RatingChange
			recorded int64
		)
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.MatchID, &c.Rating, &c.Delta, &c.KFactor, &recorded); err != nil {
			return nil, fmt.Errorf("rating history of %s: %w", playerID, err)
		}
		c.RecordedAt = fromNanos(recorded)
		out = append(out, c)
	}
	return out, rows.Err()
}

const entryQuery = `
	SELECT p.id, p.name, p.rating,
		(SELECT COUNT(*) FROM matches m WHERE m.winner_id = p.id),
		(SELECT COUNT(*) FROM matches m
			WHERE (m.player_a_id = p.id OR m.player_b_id = p.id) AND m.winner_id <> p.id)
	FROM players p`

func (s *SQLStore) TopN(ctx context.Context, n int) (entries []Entry, err error) {
	defer track("top_n")(&err)

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, s.q(entryQuery+`
		ORDER BY p.rating DESC, `+s.dialect.binaryID+` ASC
		LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer rows.Close()

	for rows.Next() {
		e := Entry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Rating, &e.Wins, &e.Losses); err != nil {
			return nil, fmt.Errorf("top %d: %w", n, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) Rank(ctx context.Context, playerID string) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, s.q(entryQuery+` WHERE p.id = ?`), playerID).
		Scan(&e.PlayerID, &e.Name, &e.Rating, &e.Wins, &e.Losses)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("rank of %s: %w", playerID, err)
	}

	err = s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) + 1 FROM players p
		WHERE p.rating > ? OR (p.rating = ? AND `+s.dialect.binaryID+` < ?)`),
		e.Rating, e.Rating, playerID).Scan(&e.Rank)
	if err != nil {
		return Entry{}, fmt.Errorf("rank of %s: %w", playerID, err)
	}
	return e, nil
}

func (s *SQLStore) count(ctx context.Context, table string) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLStore) Count(ctx context.Context) int { return s.count(ctx, "players") }

func (s *SQLStore) MatchCount(ctx context.Context) int { return s.count(ctx, "matches") }

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// toNanos expects t to have passed checkTime.
func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// nullNanos stores the zero time as NULL so the epoch stays a real instant.
func nullNanos(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
