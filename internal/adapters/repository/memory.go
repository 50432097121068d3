package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/pong/internal/domain/model"
)

type record struct {
	player model.Player
	wins   int
	losses int
}

// MemoryStore keeps the ladder in process memory. The leaderboard is served
// from a treap so that rank lookups and top-N reads stay logarithmic.
type MemoryStore struct {
	mu       sync.RWMutex
	root     *node
	byID     map[string]*record
	byName   map[string]string // lower-cased name -> id
	matches  []model.Match
	matchIDs map[string]struct{}
	history  map[string][]model.RatingChange // player id -> changes, oldest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*record),
		byName:   make(map[string]string),
		matchIDs: make(map[string]struct{}),
		history:  make(map[string][]model.RatingChange),
	}
}

func (s *MemoryStore) CreatePlayer(_ context.Context, p model.Player) (err error) {
	defer track("create_player")(&err)

	if err := checkPlayerTimes(p); err != nil {
		return fmt.Errorf("create player %s: %w", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(p.Name)
	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("create player %s: %w", p.ID, ErrPlayerExists)
	}
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("create player %q: %w", p.Name, ErrPlayerExists)
	}
	s.byID[p.ID] = &record{player: p}
	s.byName[name] = p.ID
	s.root = insert(s.root, p.ID, p.Rating)
	return nil
}

func (s *MemoryStore) Player(_ context.Context, id string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return model.Player{}, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return rec.player, nil
}

func (s *MemoryStore) Players(_ context.Context) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Player, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec.player)
	}
	slices.SortFunc(out, func(a, b model.Player) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) Matches(_ context.Context) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.matches)
	slices.SortStableFunc(out, func(a, b model.Match) int { return a.PlayedAt.Compare(b.PlayedAt) })
	return out, nil
}

func (s *MemoryStore) MatchesFor(_ context.Context, playerID string, limit int) ([]model.Match, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[playerID]; !ok {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	var out []model.Match
	for i := len(s.matches) - 1; i >= 0; i-- {
		if s.matches[i].Involves(playerID) {
			out = append(out, s.matches[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Match) int { return b.PlayedAt.Compare(a.PlayedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordResult(_ context.Context, r Result) (err error) {
	defer track("record_result")(&err)

	if err := checkResultTimes(r); err != nil {
		return fmt.Errorf("record match %s: %w", r.Match.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before the first write so a failure leaves no trace.
	if _, ok := s.matchIDs[r.Match.ID]; ok {
		return fmt.Errorf("record match %s: %w", r.Match.ID, ErrMatchExists)
	}
	recA, ok := s.byID[r.PlayerA.ID]
	if !ok {
		return fmt.Errorf("record match %s: player %s: %w", r.Match.ID, r.PlayerA.ID, ErrNotFound)
	}
	recB, ok := s.byID[r.PlayerB.ID]
	if !ok {
		return fmt.Errorf("record match %s: player %s: %w", r.Match.ID, r.PlayerB.ID, ErrNotFound)
	}
	if recA.player.Rating != r.PrevRatingA || recB.player.Rating != r.PrevRatingB {
		return fmt.Errorf("record match %s: %w", r.Match.ID, ErrConflict)
	}

	s.matches = append(s.matches, r.Match)
	s.matchIDs[r.Match.ID] = struct{}{}

	for _, upd := range []struct {
		rec *record
		p   model.Player
	}{{recA, r.PlayerA}, {recB, r.PlayerB}} {
		s.root = remove(s.root, upd.rec.player.ID, upd.rec.player.Rating)
		upd.rec.player.Rating = upd.p.Rating
		upd.rec.player.LastPlayedAt = upd.p.LastPlayedAt
		s.root = insert(s.root, upd.rec.player.ID, upd.rec.player.Rating)
		switch upd.rec.player.ID {
		case r.Match.WinnerID:
			upd.rec.wins++
		case r.Match.LoserID():
			upd.rec.losses++
		}
	}

	for _, c := range r.Changes {
		s.history[c.PlayerID] = append(s.history[c.PlayerID], c)
	}
	return nil
}

func (s *MemoryStore) RatingHistory(_ context.Context, playerID string, limit int) ([]model.RatingChange, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[playerID]; !ok {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	changes := s.history[playerID]
	out := make([]model.RatingChange, 0, min(limit, len(changes)))
	for i := len(changes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, changes[i])
	}
	return out, nil
}

func (s *MemoryStore) TopN(_ context.Context, n int) (entries []Entry, err error) {
	defer track("top_n")(&err)

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, min(n, len(s.byID)))
	collect(s.root, n, &ids)

	entries = make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = s.entry(i+1, s.byID[id])
	}
	return entries, nil
}

func (s *MemoryStore) Rank(_ context.Context, playerID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[playerID]
	if !ok {
		return Entry{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return s.entry(rankOf(s.root, playerID, rec.player.Rating), rec), nil
}

func (s *MemoryStore) entry(rank int, rec *record) Entry {
	return Entry{
		Rank:     rank,
		PlayerID: rec.player.ID,
		Name:     rec.player.Name,
		Rating:   rec.player.Rating,
		Wins:     rec.wins,
		Losses:   rec.losses,
	}
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) MatchCount(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
