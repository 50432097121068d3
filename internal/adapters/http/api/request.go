package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/pong/internal/app"
)

const maxBodyBytes = 1 << 16

// parseLimit reads ?limit. Missing means def; values above maxLimit are capped.
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return min(def, maxLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return min(n, maxLimit), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// createPlayerRequest mirrors the OpenAPI schema for POST /players.
type createPlayerRequest struct {
	Name string `json:"name"`
}

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	WinnerID  string `json:"winner_id"`
	PlayedAt  string `json:"played_at,omitempty"`
}

func (m matchRequest) toService(idempotencyKey string) (service.MatchRequest, error) {
	req := service.MatchRequest{
		PlayerAID:      strings.TrimSpace(m.PlayerAID),
		PlayerBID:      strings.TrimSpace(m.PlayerBID),
		WinnerID:       strings.TrimSpace(m.WinnerID),
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
	switch {
	case req.PlayerAID == "":
		return req, errors.New("missing player_a_id")
	case req.PlayerBID == "":
		return req, errors.New("missing player_b_id")
	case req.WinnerID == "":
		return req, errors.New("missing winner_id")
	}
	if ts := strings.TrimSpace(m.PlayedAt); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return req, errors.New("invalid played_at; must be RFC3339")
		}
		req.PlayedAt = t
	}
	return req, nil
}
