package model

import "time"

// Match is a completed game between two players.
// Side A and side B carry no meaning beyond bookkeeping.
type Match struct {
	ID        string
	PlayerAID string
	PlayerBID string
	WinnerID  string    // must equal PlayerAID or PlayerBID
	PlayedAt  time.Time // used for recency ordering only
}

// Involves reports whether the player took part in the match.
func (m Match) Involves(playerID string) bool {
	return m.PlayerAID == playerID || m.PlayerBID == playerID
}

// Opponent returns the id of the other side. The result is undefined when
// the player did not take part in the match.
func (m Match) Opponent(playerID string) string {
	if m.PlayerAID == playerID {
		return m.PlayerBID
	}
	return m.PlayerAID
}

// LoserID returns the id of the side that did not win.
func (m Match) LoserID() string {
	return m.Opponent(m.WinnerID)
}
