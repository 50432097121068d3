package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// LeaderboardDependencies reads the rating-ordered standings.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, playerID string) (Entry, error)
}

// StandingsHandler serves the leaderboard and single-player standings.
type StandingsHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewStandingsHandler returns a handler capping leaderboard pages at maxLimit.
func NewStandingsHandler(deps LeaderboardDependencies, maxLimit int) *StandingsHandler {
	return &StandingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleTop handles GET /leaderboard?limit=N.
func (h *StandingsHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	n, err := parseLimit(r, defaultLeaderboardLimit, h.maxLimit)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	top, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if top == nil {
		top = []Entry{}
	}
	writeJSON(w, http.StatusOK, top)
}

// HandleRank handles GET /players/{id}/rank.
func (h *StandingsHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank"
	entry, err := h.deps.Rank(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
