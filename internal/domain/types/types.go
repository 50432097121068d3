// Package types contains the JSON read shapes shared by the service and the HTTP API.
package types

import (
	"time"

	"github.com/okian/pong/internal/domain/model"
)

// Entry represents a leaderboard entry.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
}

// Player is the public view of a player.
type Player struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Rating       float64    `json:"rating"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
}

// Match is the public view of a recorded match.
type Match struct {
	ID        string    `json:"id"`
	PlayerAID string    `json:"player_a_id"`
	PlayerBID string    `json:"player_b_id"`
	WinnerID  string    `json:"winner_id"`
	PlayedAt  time.Time `json:"played_at"`
}

// RatingChange is one point of a player's rating history.
type RatingChange struct {
	MatchID    string    `json:"match_id"`
	Rating     float64   `json:"rating"`
	Delta      float64   `json:"delta"`
	KFactor    float64   `json:"k_factor"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Side describes one player's part in a scored match.
type Side struct {
	PlayerID  string  `json:"player_id"`
	OldRating float64 `json:"old_rating"`
	NewRating float64 `json:"new_rating"`
	Delta     float64 `json:"delta"`
	KFactor   float64 `json:"k_factor"`
	Expected  float64 `json:"expected"`
	Won       bool    `json:"won"`
}

// MatchOutcome is returned when a match is recorded or previewed.
type MatchOutcome struct {
	Match *Match `json:"match,omitempty"`
	A     Side   `json:"a"`
	B     Side   `json:"b"`
}

// FromPlayer converts a domain player.
func FromPlayer(p model.Player) Player {
	out := Player{ID: p.ID, Name: p.Name, Rating: p.Rating, JoinedAt: p.JoinedAt}
	if !p.LastPlayedAt.IsZero() {
		last := p.LastPlayedAt
		out.LastPlayedAt = &last
	}
	return out
}

// FromMatch converts a domain match.
func FromMatch(m model.Match) Match {
	return Match{ID: m.ID, PlayerAID: m.PlayerAID, PlayerBID: m.PlayerBID, WinnerID: m.WinnerID, PlayedAt: m.PlayedAt}
}

// FromRatingChange converts a domain rating change.
func FromRatingChange(c model.RatingChange) RatingChange {
	return RatingChange{MatchID: c.MatchID, Rating: c.Rating, Delta: c.Delta, KFactor: c.KFactor, RecordedAt: c.RecordedAt}
}
