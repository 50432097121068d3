// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	repository "github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/domain/dedupe"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/rating"
	"github.com/okian/pong/internal/domain/types"
	"github.com/okian/pong/pkg/logger"
	"github.com/okian/pong/pkg/metrics"
)

const (
	maxNameLength = 64

	// maxClockSkew is how far in the future a client's played_at may lie.
	maxClockSkew = 5 * time.Minute
)

// earliestPlayedAt is the oldest accepted played_at.
var earliestPlayedAt = time.Unix(0, 0).UTC() //nolint:gochecknoglobals

// MatchRequest describes a played match to be scored.
type MatchRequest struct {
	PlayerAID string
	PlayerBID string
	WinnerID  string

	// PlayedAt defaults to the current time when zero. Values before the
	// Unix epoch or more than a few minutes ahead of the clock are rejected.
	PlayedAt time.Time

	// IdempotencyKey is optional. A key that was already used makes
	// RecordMatch fail with a *DuplicateError.
	IdempotencyKey string
}

// MatchResult is a scored match. Match.ID is empty for previews.
type MatchResult struct {
	Match   model.Match
	PlayerA model.Player
	PlayerB model.Player
	Outcome rating.Outcome
}

// Service implements the API dependencies for the ladder.
type Service struct {
	mu sync.RWMutex

	// scoreMu serializes rating updates so that every match is scored
	// against the history committed before it.
	scoreMu sync.Mutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	engine  *rating.Engine

	// Configuration
	ratingOpts    []rating.Option
	defaultRating float64
	dedupeSize    int
	now           func() time.Time
	newID         func() string

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The service owns the store and
// closes it on Stop. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRatingOptions configures the rating engine.
func WithRatingOptions(opts ...rating.Option) Option {
	return func(s *Service) {
		s.ratingOpts = append(s.ratingOpts, opts...)
	}
}

// WithDefaultRating sets the rating of newly registered players.
func WithDefaultRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.defaultRating = r
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how player, match and rating change ids are allocated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		defaultRating: model.DefaultRating,
		dedupeSize:    50000,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine = rating.New(s.ratingOpts...)
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ladder service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)

	metrics.UpdateTotalPlayers(s.store.Count(ctx))
	metrics.UpdateTotalMatches(s.store.MatchCount(ctx))

	p := s.engine.Params()
	s.started = true
	s.logger.Info(ctx, "ladder service started",
		logger.Float64("baseK", p.BaseK),
		logger.Float64("minK", p.MinK),
		logger.Float64("maxK", p.MaxK),
		logger.Int("window", p.Window),
		logger.Float64("defaultRating", s.defaultRating),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop closes the store. A stopped service rejects every operation.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ladder service...")

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "failed to close store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "ladder service stopped")
}

func (s *Service) components() (repository.Store, dedupe.Deduper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.deduper, nil
}

// RegisterPlayer creates a player with the default rating.
func (s *Service) RegisterPlayer(ctx context.Context, name string) (model.Player, error) {
	store, _, err := s.components()
	if err != nil {
		return model.Player{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return model.Player{}, fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidName, maxNameLength)
	}

	p := model.Player{
		ID:       s.newID(),
		Name:     name,
		Rating:   s.defaultRating,
		JoinedAt: s.now(),
	}
	if err := store.CreatePlayer(ctx, p); err != nil {
		return model.Player{}, fmt.Errorf("register player: %w", err)
	}

	metrics.UpdateTotalPlayers(store.Count(ctx))
	s.logger.Info(ctx, "player registered",
		logger.String("playerID", p.ID),
		logger.String("name", p.Name),
	)
	return p, nil
}

// RecordMatch scores a match and persists the result.
func (s *Service) RecordMatch(ctx context.Context, req MatchRequest) (res MatchResult, err error) {
	store, deduper, err := s.components()
	if err != nil {
		return MatchResult{}, err
	}
	if err := s.validateMatch(req); err != nil {
		metrics.RecordMatchRejected(rejectReason(err))
		return MatchResult{}, err
	}

	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		if deduper.SeenAndRecord(ctx, key) {
			metrics.RecordMatchDuplicate()
			matchID, _ := deduper.Lookup(ctx, key)
			s.logger.Debug(ctx, "duplicate match submission",
				logger.String("key", key),
				logger.String("matchID", matchID),
			)
			return MatchResult{}, &DuplicateError{Key: key, MatchID: matchID}
		}
		defer func() {
			if err != nil {
				deduper.Unrecord(ctx, key)
				return
			}
			deduper.Bind(ctx, key, res.Match.ID)
		}()
	}

	s.scoreMu.Lock()
	defer s.scoreMu.Unlock()

	res, err = s.score(ctx, store, req)
	if err != nil {
		metrics.RecordMatchRejected(rejectReason(err))
		return MatchResult{}, err
	}
	res.Match.ID = s.newID()

	recordedAt := s.now()
	o := res.Outcome
	result := repository.Result{
		Match:       res.Match,
		PlayerA:     res.PlayerA,
		PlayerB:     res.PlayerB,
		PrevRatingA: o.OldRatingA,
		PrevRatingB: o.OldRatingB,
		Changes: [2]model.RatingChange{
			{ID: s.newID(), PlayerID: res.PlayerA.ID, MatchID: res.Match.ID, Rating: o.NewRatingA, Delta: o.DeltaA(), KFactor: o.KA, RecordedAt: recordedAt},
			{ID: s.newID(), PlayerID: res.PlayerB.ID, MatchID: res.Match.ID, Rating: o.NewRatingB, Delta: o.DeltaB(), KFactor: o.KB, RecordedAt: recordedAt},
		},
	}
	if err := store.RecordResult(ctx, result); err != nil {
		metrics.RecordErrorByComponent("service", "record_result")
		s.logger.Error(ctx, "failed to record match",
			logger.String("playerA", req.PlayerAID),
			logger.String("playerB", req.PlayerBID),
			logger.Error(err),
		)
		return MatchResult{}, fmt.Errorf("record match: %w", err)
	}

	metrics.RecordMatch(o.KA, o.KB, o.DeltaA(), o.DeltaB())
	metrics.UpdateTotalMatches(store.MatchCount(ctx))
	s.logger.Info(ctx, "match recorded",
		logger.String("matchID", res.Match.ID),
		logger.String("winnerID", res.Match.WinnerID),
		logger.Float64("ratingA", o.NewRatingA),
		logger.Float64("ratingB", o.NewRatingB),
		logger.Float64("kA", o.KA),
		logger.Float64("kB", o.KB),
	)
	return res, nil
}

// Preview scores a hypothetical match against the current ladder without
// persisting anything.
func (s *Service) Preview(ctx context.Context, req MatchRequest) (MatchResult, error) {
	store, _, err := s.components()
	if err != nil {
		return MatchResult{}, err
	}
	if err := s.validateMatch(req); err != nil {
		return MatchResult{}, err
	}
	return s.score(ctx, store, req)
}

// score loads both players and the committed history and runs the engine.
// The returned match has no id yet.
func (s *Service) score(ctx context.Context, store repository.Store, req MatchRequest) (MatchResult, error) {
	a, err := store.Player(ctx, req.PlayerAID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("player a: %w", err)
	}
	b, err := store.Player(ctx, req.PlayerBID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("player b: %w", err)
	}
	history, err := store.Matches(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("load history: %w", err)
	}

	playedAt := req.PlayedAt.UTC()
	if req.PlayedAt.IsZero() {
		playedAt = s.now()
	}
	match := model.Match{
		PlayerAID: a.ID,
		PlayerBID: b.ID,
		WinnerID:  req.WinnerID,
		PlayedAt:  playedAt,
	}

	o := s.engine.Compute(a, b, match, history)
	a.Rating, b.Rating = o.NewRatingA, o.NewRatingB
	for _, p := range []*model.Player{&a, &b} {
		if playedAt.After(p.LastPlayedAt) {
			p.LastPlayedAt = playedAt
		}
	}

	return MatchResult{Match: match, PlayerA: a, PlayerB: b, Outcome: o}, nil
}

func (s *Service) validateMatch(req MatchRequest) error {
	if !req.PlayedAt.IsZero() {
		if req.PlayedAt.Before(earliestPlayedAt) || req.PlayedAt.After(s.now().Add(maxClockSkew)) {
			return fmt.Errorf("%w: played_at %s is out of range", ErrInvalidMatch, req.PlayedAt.Format(time.RFC3339))
		}
	}
	switch {
	case strings.TrimSpace(req.PlayerAID) == "" || strings.TrimSpace(req.PlayerBID) == "":
		return fmt.Errorf("%w: both player ids are required", ErrInvalidMatch)
	case req.PlayerAID == req.PlayerBID:
		return ErrSamePlayer
	case req.WinnerID != req.PlayerAID && req.WinnerID != req.PlayerBID:
		return ErrWinnerNotInMatch
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMatch):
		return "invalid"
	case errors.Is(err, ErrSamePlayer):
		return "same_player"
	case errors.Is(err, ErrWinnerNotInMatch):
		return "winner_not_in_match"
	case errors.Is(err, repository.ErrNotFound):
		return "unknown_player"
	default:
		return "internal"
	}
}

// Player returns a player by id.
func (s *Service) Player(ctx context.Context, id string) (model.Player, error) {
	store, _, err := s.components()
	if err != nil {
		return model.Player{}, err
	}
	return store.Player(ctx, id)
}

// Players returns every registered player ordered by name.
func (s *Service) Players(ctx context.Context) ([]model.Player, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.Players(ctx)
}

// MatchesFor returns up to limit matches of a player, newest first.
func (s *Service) MatchesFor(ctx context.Context, playerID string, limit int) ([]model.Match, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	if _, err := store.Player(ctx, playerID); err != nil {
		return nil, err
	}
	return store.MatchesFor(ctx, playerID, limit)
}

// RatingHistory returns up to limit rating changes of a player, newest first.
func (s *Service) RatingHistory(ctx context.Context, playerID string, limit int) ([]model.RatingChange, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	if _, err := store.Player(ctx, playerID); err != nil {
		return nil, err
	}
	return store.RatingHistory(ctx, playerID, limit)
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	entries, err := store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = toEntry(entry)
	}
	return apiEntries, nil
}

// Rank returns the leaderboard entry of a player.
func (s *Service) Rank(ctx context.Context, playerID string) (types.Entry, error) {
	store, _, err := s.components()
	if err != nil {
		return types.Entry{}, err
	}
	entry, err := store.Rank(ctx, playerID)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(entry), nil
}

func toEntry(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:     e.Rank,
		PlayerID: e.PlayerID,
		Name:     e.Name,
		Rating:   e.Rating,
		Wins:     e.Wins,
		Losses:   e.Losses,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.engine.Params()
	stats := map[string]interface{}{
		"started":       s.started,
		"defaultRating": s.defaultRating,
		"baseK":         p.BaseK,
		"minK":          p.MinK,
		"maxK":          p.MaxK,
		"kWindow":       p.Window,
		"dedupeSize":    s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		players := s.store.Count(ctx)
		matches := s.store.MatchCount(ctx)

		stats["totalPlayers"] = players
		stats["totalMatches"] = matches
		stats["idempotencyKeys"] = s.deduper.Size()

		metrics.UpdateTotalPlayers(players)
		metrics.UpdateTotalMatches(matches)
	}

	return stats
}
