package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/pong/internal/adapters/http/api"
	service "github.com/okian/pong/internal/app"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/types"
	"github.com/okian/pong/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// brokenLeaderboard fails every leaderboard read.
type brokenLeaderboard struct {
	*service.Service
}

func (brokenLeaderboard) TopN(context.Context, int) ([]types.Entry, error) {
	return nil, errors.New("disk on fire")
}

func do(h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

func register(h http.Handler, name string) types.Player {
	w := do(h, http.MethodPost, "/players", `{"name":"`+name+`"}`)
	So(w.Code, ShouldEqual, http.StatusCreated)
	return decode[types.Player](w)
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server backed by a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		h := api.NewServer(svc, api.WithMaxLeaderboardLimit(3), api.WithMaxHistoryLimit(5)).Handler(ctx)

		Convey("Then the health endpoint reports ok", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then the metrics endpoint serves the registry", func() {
			do(h, http.MethodGet, "/leaderboard", "")
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "pong_ladder_http_requests_total")
		})

		Convey("Then the stats endpoint exposes the service stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](w)
			So(stats["started"], ShouldEqual, true)
			So(stats["baseK"], ShouldEqual, 32.0)
		})

		Convey("Then unknown routes are a JSON 404", func() {
			w := do(h, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(decode[map[string]any](w)["code"], ShouldEqual, "not_found")

			w = do(h, http.MethodGet, "/players/p1/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[map[string]any](w)["code"], ShouldEqual, "not_found")
		})

		Convey("Then unsupported methods are a JSON 405", func() {
			w := do(h, http.MethodDelete, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(decode[map[string]any](w)["code"], ShouldEqual, "method_not_allowed")
		})

		Convey("When registering players", func() {
			ann := register(h, "Ann")
			bob := register(h, "Bob")

			Convey("Then they are listed and retrievable", func() {
				So(ann.Rating, ShouldEqual, 1000.0)
				So(ann.LastPlayedAt, ShouldBeNil)

				w := do(h, http.MethodGet, "/players", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(decode[[]types.Player](w)), ShouldEqual, 2)

				w = do(h, http.MethodGet, "/players/"+bob.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Player](w).Name, ShouldEqual, "Bob")
			})

			Convey("Then a duplicate name is a conflict", func() {
				w := do(h, http.MethodPost, "/players", `{"name":"ann"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode[map[string]string](w)["code"], ShouldEqual, "player_exists")
			})

			Convey("Then an empty name is rejected", func() {
				So(do(h, http.MethodPost, "/players", `{"name":" "}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(h, http.MethodPost, "/players", `{"nom":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And recording a match", func() {
				body := `{"player_a_id":"` + ann.ID + `","player_b_id":"` + bob.ID + `","winner_id":"` + ann.ID + `","played_at":"2024-03-01T12:00:00Z"}`
				w := do(h, http.MethodPost, "/matches", body, api.IdempotencyKeyHeader, "match-1")

				Convey("Then both new ratings and K factors are returned", func() {
					So(w.Code, ShouldEqual, http.StatusCreated)
					out := decode[types.MatchOutcome](w)
					So(out.Match, ShouldNotBeNil)
					So(out.A.NewRating, ShouldEqual, 1016.0)
					So(out.B.NewRating, ShouldEqual, 984.0)
					So(out.A.KFactor, ShouldEqual, 32.0)
					So(out.A.Won, ShouldBeTrue)
					So(out.B.Expected, ShouldEqual, 0.5)
				})

				Convey("Then replaying the idempotency key is a conflict", func() {
					w2 := do(h, http.MethodPost, "/matches", body, api.IdempotencyKeyHeader, "match-1")
					So(w2.Code, ShouldEqual, http.StatusConflict)
					So(decode[map[string]string](w2)["code"], ShouldEqual, "duplicate")
				})

				Convey("Then the leaderboard, rank and history reflect it", func() {
					w := do(h, http.MethodGet, "/leaderboard", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					top := decode[[]types.Entry](w)
					So(len(top), ShouldEqual, 2)
					So(top[0].PlayerID, ShouldEqual, ann.ID)
					So(top[0].Wins, ShouldEqual, 1)

					w = do(h, http.MethodGet, "/players/"+bob.ID+"/rank", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					So(decode[types.Entry](w).Rank, ShouldEqual, 2)

					w = do(h, http.MethodGet, "/players/"+bob.ID+"/history?limit=50", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					history := decode[[]types.RatingChange](w)
					So(len(history), ShouldEqual, 1)
					So(history[0].Delta, ShouldEqual, -16.0)

					w = do(h, http.MethodGet, "/players/"+ann.ID+"/matches", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					So(len(decode[[]types.Match](w)), ShouldEqual, 1)
				})
			})

			Convey("And previewing a match", func() {
				body := `{"player_a_id":"` + ann.ID + `","player_b_id":"` + bob.ID + `","winner_id":"` + bob.ID + `"}`
				w := do(h, http.MethodPost, "/matches/preview", body)

				Convey("Then the outcome is returned without a match", func() {
					So(w.Code, ShouldEqual, http.StatusOK)
					out := decode[types.MatchOutcome](w)
					So(out.Match, ShouldBeNil)
					So(out.B.NewRating, ShouldEqual, 1016.0)

					p, err := svc.Player(ctx, bob.ID)
					So(err, ShouldBeNil)
					So(p.Rating, ShouldEqual, model.DefaultRating)
				})
			})

			Convey("Then invalid matches are rejected", func() {
				same := `{"player_a_id":"` + ann.ID + `","player_b_id":"` + ann.ID + `","winner_id":"` + ann.ID + `"}`
				So(do(h, http.MethodPost, "/matches", same).Code, ShouldEqual, http.StatusBadRequest)

				outsider := `{"player_a_id":"` + ann.ID + `","player_b_id":"` + bob.ID + `","winner_id":"carol"}`
				So(do(h, http.MethodPost, "/matches", outsider).Code, ShouldEqual, http.StatusBadRequest)

				ghost := `{"player_a_id":"` + ann.ID + `","player_b_id":"ghost","winner_id":"ghost"}`
				So(do(h, http.MethodPost, "/matches", ghost).Code, ShouldEqual, http.StatusNotFound)

				badTime := `{"player_a_id":"` + ann.ID + `","player_b_id":"` + bob.ID + `","winner_id":"` + bob.ID + `","played_at":"yesterday"}`
				So(do(h, http.MethodPost, "/matches", badTime).Code, ShouldEqual, http.StatusBadRequest)

				So(do(h, http.MethodPost, "/matches", `{invalid json`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then played_at must lie between the epoch and now", func() {
				at := func(ts string) string {
					return `{"player_a_id":"` + ann.ID + `","player_b_id":"` + bob.ID + `","winner_id":"` + bob.ID + `","played_at":"` + ts + `"}`
				}
				So(do(h, http.MethodPost, "/matches", at("1969-12-31T23:59:59Z")).Code, ShouldEqual, http.StatusBadRequest)
				So(do(h, http.MethodPost, "/matches", at("2300-01-01T00:00:00Z")).Code, ShouldEqual, http.StatusBadRequest)
				So(do(h, http.MethodPost, "/matches/preview", at("2300-01-01T00:00:00Z")).Code, ShouldEqual, http.StatusBadRequest)
				So(do(h, http.MethodPost, "/matches", at("1970-01-01T00:00:00Z")).Code, ShouldEqual, http.StatusCreated)

				w := do(h, http.MethodGet, "/players/"+ann.ID+"/matches", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"played_at":"1970-01-01T00:00:00Z"`)
			})
		})

		Convey("Then unknown players are 404", func() {
			So(do(h, http.MethodGet, "/players/nope", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodGet, "/players/nope/rank", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodGet, "/players/nope/history", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then leaderboard limits are validated and capped", func() {
			for _, name := range []string{"a", "b", "c", "d", "e"} {
				register(h, name)
			}
			So(do(h, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)

			w := do(h, http.MethodGet, "/leaderboard?limit=50", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(len(decode[[]types.Entry](w)), ShouldEqual, 3)
		})
	})
}

func TestServer_Failures(t *testing.T) {
	Convey("Given a server whose leaderboard read fails", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		h := api.NewServer(brokenLeaderboard{svc}).Handler(ctx)

		Convey("Then the client sees a 500 without internal details", func() {
			w := do(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
		})
	})

	Convey("Given a server over a stopped service", t, func() {
		ctx := context.Background()
		h := api.NewServer(service.New()).Handler(ctx)

		Convey("Then requests are 503", func() {
			So(do(h, http.MethodGet, "/leaderboard", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
