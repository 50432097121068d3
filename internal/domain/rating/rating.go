// Package rating implements the pairwise rating engine: a logistic
// expected-outcome model combined with a per-player dynamic K-factor derived
// from the player's most recent results.
//
// The engine is a pure function of its inputs. It never mutates the players or
// the match history it is given and keeps no state between calls, so a single
// Engine may be shared freely across goroutines.
package rating

import (
	"math"
	"slices"

	"github.com/okian/pong/internal/domain/model"
)

// Default engine parameters.
const (
	DefaultBaseK  = 32.0
	DefaultMinK   = 16.0
	DefaultMaxK   = 48.0
	DefaultWindow = 10
)

const (
	// eloScale is the rating gap at which the stronger side is a 10:1 favourite.
	eloScale = 400.0
	// A win raises K more than a loss lowers it, so mixed results rest below BaseK.
	winStep  = 2.0
	lossStep = 1.0
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithBaseK sets the K-factor a player without recent matches starts from.
func WithBaseK(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.baseK = k
		}
	}
}

// WithKBounds sets the clamp range applied to every dynamic K-factor.
func WithKBounds(minK, maxK float64) Option {
	return func(e *Engine) {
		if minK > 0 && maxK >= minK {
			e.minK = minK
			e.maxK = maxK
		}
	}
}

// WithWindow sets how many of a player's most recent matches drive the K-factor.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// Params exposes the effective engine parameters.
type Params struct {
	BaseK  float64
	MinK   float64
	MaxK   float64
	Window int
}

// Engine computes rating updates.
type Engine struct {
	baseK  float64
	minK   float64
	maxK   float64
	window int
}

// New creates an engine with default parameters overridden by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		baseK:  DefaultBaseK,
		minK:   DefaultMinK,
		maxK:   DefaultMaxK,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params {
	return Params{BaseK: e.baseK, MinK: e.minK, MaxK: e.maxK, Window: e.window}
}

// Outcome carries every intermediate value of a rating update.
type Outcome struct {
	OldRatingA, OldRatingB float64
	KA, KB                 float64
	ExpectedA, ExpectedB   float64
	ActualA, ActualB       float64
	NewRatingA, NewRatingB float64
}

// DeltaA returns side A's rating change.
func (o Outcome) DeltaA() float64 { return o.NewRatingA - o.OldRatingA }

// DeltaB returns side B's rating change.
func (o Outcome) DeltaB() float64 { return o.NewRatingB - o.OldRatingB }

// ExpectedOutcome returns the probability that a player rated ratingA beats a
// player rated ratingB. The value lies in (0,1) for finite inputs. Callers
// needing side B's probability must use 1 - ExpectedOutcome(ratingA, ratingB).
func ExpectedOutcome(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/eloScale))
}

// DynamicK returns the K-factor for player given the full match history.
//
// Only the player's Window most recent matches (by PlayedAt, newest first)
// count: every loss lowers K by one and every win raises it by two, starting
// at BaseK. The result is clamped to [MinK, MaxK]. A player without matches
// gets BaseK.
func (e *Engine) DynamicK(player model.Player, history []model.Match) float64 {
	k := e.baseK
	for _, m := range e.recent(player.ID, history) {
		if m.WinnerID == m.Opponent(player.ID) {
			k -= lossStep
		} else {
			k += winStep
		}
	}
	return math.Max(e.minK, math.Min(e.maxK, k))
}

// recent returns up to window matches involving playerID, newest first.
// Matches played at the same instant keep their relative input order.
func (e *Engine) recent(playerID string, history []model.Match) []model.Match {
	var played []model.Match
	for _, m := range history {
		if m.Involves(playerID) {
			played = append(played, m)
		}
	}
	slices.SortStableFunc(played, func(a, b model.Match) int {
		return b.PlayedAt.Compare(a.PlayedAt)
	})
	if len(played) > e.window {
		played = played[:e.window]
	}
	return played
}

// Compute scores match between a and b.
//
// history must not contain match itself: both K-factors are derived from the
// results known before the match was played. match.WinnerID must be a.ID or
// b.ID; any other value is treated as a win for b.
func (e *Engine) Compute(a, b model.Player, match model.Match, history []model.Match) Outcome {
	o := Outcome{
		OldRatingA: a.Rating,
		OldRatingB: b.Rating,
		KA:         e.DynamicK(a, history),
		KB:         e.DynamicK(b, history),
	}

	o.ExpectedA = ExpectedOutcome(a.Rating, b.Rating)
	o.ExpectedB = 1 - o.ExpectedA

	if match.WinnerID == a.ID {
		o.ActualA = 1
	}
	o.ActualB = 1 - o.ActualA

	o.NewRatingA = a.Rating + o.KA*(o.ActualA-o.ExpectedA)
	o.NewRatingB = b.Rating + o.KB*(o.ActualB-o.ExpectedB)
	return o
}

// ComputeNewRatings returns the ratings of a and b after match.
// The same preconditions as Compute apply.
func (e *Engine) ComputeNewRatings(a, b model.Player, match model.Match, history []model.Match) (float64, float64) {
	o := e.Compute(a, b, match, history)
	return o.NewRatingA, o.NewRatingB
}

var defaultEngine = New() //nolint:gochecknoglobals // stateless engine with default parameters

// DynamicK is Engine.DynamicK with default parameters.
func DynamicK(player model.Player, history []model.Match) float64 {
	return defaultEngine.DynamicK(player, history)
}

// ComputeNewRatings is Engine.ComputeNewRatings with default parameters.
func ComputeNewRatings(a, b model.Player, match model.Match, history []model.Match) (float64, float64) {
	return defaultEngine.ComputeNewRatings(a, b, match, history)
}
