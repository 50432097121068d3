package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/pong/internal/domain/types"
)

// PlayersHandler serves the player registry and per-player reads.
type PlayersHandler struct {
	deps            PlayerDependencies
	maxHistoryLimit int
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies, maxHistoryLimit int) *PlayersHandler {
	return &PlayersHandler{deps: deps, maxHistoryLimit: maxHistoryLimit}
}

// HandleCreate handles POST /players.
func (h *PlayersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_player"
	var req createPlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.RegisterPlayer(r.Context(), req.Name)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/players/"+p.ID)
	writeJSON(w, http.StatusCreated, types.FromPlayer(p))
}

// HandleList handles GET /players.
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_players"
	players, err := h.deps.Players(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out := make([]types.Player, len(players))
	for i, p := range players {
		out[i] = types.FromPlayer(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /players/{id}.
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	p, err := h.deps.Player(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromPlayer(p))
}

// HandleHistory handles GET /players/{id}/history?limit=N.
func (h *PlayersHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	limit, err := parseLimit(r, defaultHistoryLimit, h.maxHistoryLimit)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	changes, err := h.deps.RatingHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out := make([]types.RatingChange, len(changes))
	for i, c := range changes {
		out[i] = types.FromRatingChange(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleMatches handles GET /players/{id}/matches?limit=N.
func (h *PlayersHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matches"
	limit, err := parseLimit(r, defaultHistoryLimit, h.maxHistoryLimit)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	matches, err := h.deps.MatchesFor(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out := make([]types.Match, len(matches))
	for i, m := range matches {
		out[i] = types.FromMatch(m)
	}
	writeJSON(w, http.StatusOK, out)
}
