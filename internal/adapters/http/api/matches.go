package api

import (
	"context"
	"net/http"

	service "github.com/okian/pong/internal/app"
	"github.com/okian/pong/internal/domain/types"
)

// IdempotencyKeyHeader carries the optional client supplied key of POST /matches.
const IdempotencyKeyHeader = "Idempotency-Key"

// MatchesHandler scores matches.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleRecord handles POST /matches.
func (h *MatchesHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "api.record_match", h.deps.RecordMatch, http.StatusCreated)
}

// HandlePreview handles POST /matches/preview. Nothing is persisted.
func (h *MatchesHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "api.preview_match", h.deps.Preview, http.StatusOK)
}

type scoreFunc func(context.Context, service.MatchRequest) (service.MatchResult, error)

func (h *MatchesHandler) handle(w http.ResponseWriter, r *http.Request, op string, score scoreFunc, status int) {
	var body matchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	req, err := body.toService(r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := score(r.Context(), req)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, status, toOutcome(res))
}

func toOutcome(res service.MatchResult) types.MatchOutcome {
	o := res.Outcome
	out := types.MatchOutcome{
		A: types.Side{
			PlayerID:  res.PlayerA.ID,
			OldRating: o.OldRatingA,
			NewRating: o.NewRatingA,
			Delta:     o.DeltaA(),
			KFactor:   o.KA,
			Expected:  o.ExpectedA,
			Won:       o.ActualA == 1,
		},
		B: types.Side{
			PlayerID:  res.PlayerB.ID,
			OldRating: o.OldRatingB,
			NewRating: o.NewRatingB,
			Delta:     o.DeltaB(),
			KFactor:   o.KB,
			Expected:  o.ExpectedB,
			Won:       o.ActualB == 1,
		},
	}
	if res.Match.ID != "" {
		m := types.FromMatch(res.Match)
		out.Match = &m
	}
	return out
}
