// Package repository persists players, matches and rating history and serves
// the leaderboard read model.
package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/pong/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank     int
	PlayerID string
	Name     string
	Rating   float64
	Wins     int
	Losses   int
}

// Result is everything a scored match changes. It is written atomically.
type Result struct {
	Match model.Match

	// PlayerA and PlayerB hold the updated ratings and LastPlayedAt.
	PlayerA model.Player
	PlayerB model.Player

	// PrevRatingA and PrevRatingB are the ratings the update was computed
	// from. RecordResult fails with ErrConflict when the stored rating
	// differs, which means another writer scored a match in between.
	PrevRatingA float64
	PrevRatingB float64

	Changes [2]model.RatingChange
}

// Store provides read/write access to the ladder state.
type Store interface {
	// CreatePlayer adds a player. Returns ErrPlayerExists if the id or name is taken.
	CreatePlayer(ctx context.Context, p model.Player) error

	// Player returns a player by id or ErrNotFound.
	Player(ctx context.Context, id string) (model.Player, error)

	// Players returns every player ordered by name.
	Players(ctx context.Context) ([]model.Player, error)

	// Matches returns the full match history, oldest first.
	Matches(ctx context.Context) ([]model.Match, error)

	// MatchesFor returns up to limit matches of a player, newest first.
	MatchesFor(ctx context.Context, playerID string, limit int) ([]model.Match, error)

	// RecordResult inserts the match, updates both players and appends the
	// rating changes, all or nothing.
	RecordResult(ctx context.Context, r Result) error

	// RatingHistory returns up to limit rating changes of a player, newest first.
	RatingHistory(ctx context.Context, playerID string, limit int) ([]model.RatingChange, error)

	// TopN returns the top-N entries ordered by rating desc, then player id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Rank returns the leaderboard entry of a player or ErrNotFound.
	Rank(ctx context.Context, playerID string) (Entry, error)

	// Count returns the number of registered players.
	Count(ctx context.Context) int

	// MatchCount returns the number of recorded matches.
	MatchCount(ctx context.Context) int

	Close() error
}

// Timestamps are stored as nanoseconds since the Unix epoch, which bounds
// them to roughly 1678..2262.
var (
	minStorableTime = time.Unix(0, math.MinInt64).UTC() //nolint:gochecknoglobals
	maxStorableTime = time.Unix(0, math.MaxInt64).UTC() //nolint:gochecknoglobals
)

// checkTime fails with ErrInvalidTime when t cannot be stored losslessly.
// The zero time is accepted only when optional is set.
func checkTime(field string, t time.Time, optional bool) error {
	if t.IsZero() && optional {
		return nil
	}
	if t.Before(minStorableTime) || t.After(maxStorableTime) {
		return fmt.Errorf("%s %s: %w", field, t.Format(time.RFC3339), ErrInvalidTime)
	}
	return nil
}

func checkPlayerTimes(p model.Player) error {
	if err := checkTime("joined_at", p.JoinedAt, false); err != nil {
		return err
	}
	return checkTime("last_played_at", p.LastPlayedAt, true)
}

func checkResultTimes(r Result) error {
	if err := checkTime("played_at", r.Match.PlayedAt, false); err != nil {
		return err
	}
	for _, p := range []model.Player{r.PlayerA, r.PlayerB} {
		if err := checkPlayerTimes(p); err != nil {
			return err
		}
	}
	for _, c := range r.Changes {
		if err := checkTime("recorded_at", c.RecordedAt, false); err != nil {
			return err
		}
	}
	return nil
}
