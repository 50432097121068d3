package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromPlayer(t *testing.T) {
	joined := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given a player who never played", t, func() {
		p := types.FromPlayer(model.Player{ID: "p1", Name: "Ann", Rating: 1000, JoinedAt: joined})

		Convey("Then last_played_at is omitted from the JSON", func() {
			raw, err := json.Marshal(p)
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, "last_played_at")
			So(string(raw), ShouldContainSubstring, `"joined_at":"2024-02-01T09:00:00Z"`)
		})
	})

	Convey("Given a player with a recorded match", t, func() {
		played := joined.Add(48 * time.Hour)
		src := model.Player{ID: "p1", Name: "Ann", Rating: 1016, JoinedAt: joined, LastPlayedAt: played}
		p := types.FromPlayer(src)

		Convey("Then last_played_at is set to a copy", func() {
			So(p.LastPlayedAt, ShouldNotBeNil)
			So(p.LastPlayedAt.Equal(played), ShouldBeTrue)
		})
	})
}

func TestFromMatchAndRatingChange(t *testing.T) {
	Convey("Given a match and a rating change", t, func() {
		at := time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC)
		m := types.FromMatch(model.Match{ID: "m1", PlayerAID: "a", PlayerBID: "b", WinnerID: "b", PlayedAt: at})
		c := types.FromRatingChange(model.RatingChange{ID: "c1", PlayerID: "a", MatchID: "m1", Rating: 984, Delta: -16, KFactor: 32, RecordedAt: at})

		Convey("Then the public fields are carried over", func() {
			So(m.WinnerID, ShouldEqual, "b")
			So(m.PlayedAt, ShouldEqual, at)
			So(c.MatchID, ShouldEqual, "m1")
			So(c.Delta, ShouldEqual, -16)
			So(c.KFactor, ShouldEqual, 32)
		})
	})
}
