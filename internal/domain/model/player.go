// Package model contains domain models passed between layers.
package model

import "time"

// DefaultRating is the rating assigned to newly registered players.
const DefaultRating = 1000.0

// Player is a ranked competitor.
type Player struct {
	ID           string    // unique id, allocated by the service layer
	Name         string    // display name, unique
	Rating       float64   // current rating
	JoinedAt     time.Time // registration time
	LastPlayedAt time.Time // zero until the first recorded match
}

// RatingChange is one entry of a player's rating history, written once per
// player per recorded match.
type RatingChange struct {
	ID         string
	PlayerID   string
	MatchID    string
	Rating     float64 // rating after the match
	Delta      float64 // rating change caused by the match
	KFactor    float64 // K-factor used for the update
	RecordedAt time.Time
}
