// Package simulate drives a running ladder service with synthetic players
// and checks that the ratings it produces recover their hidden skill order.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Players  int           // Number of players to register
	Matches  int           // Number of matches to play
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // Seed for skills and match outcomes
	Spread   float64       // Standard deviation of hidden skills
	MinScore float64       // Fail the run when rank agreement is lower; 0 disables
	Verbose  bool          // Log every failed request
}

// Player is a registered player and the hidden skill that decides its matches.
type Player struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Skill float64 `json:"-"`
}

// Fixture is a match to be played. The winner is decided up front.
type Fixture struct {
	PlayerAID      string    `json:"player_a_id"`
	PlayerBID      string    `json:"player_b_id"`
	WinnerID       string    `json:"winner_id"`
	PlayedAt       time.Time `json:"played_at"`
	IdempotencyKey string    `json:"-"`
}

// rated mirrors the player view returned by the service.
type rated struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersRegistered int
	MatchesSubmitted  int
	MatchesRecorded   int
	MatchesDuplicate  int
	MatchesFailed     int
	RankAgreement     float64
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
