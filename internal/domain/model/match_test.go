package model_test

import (
	"testing"
	"time"

	"github.com/okian/pong/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMatch(t *testing.T) {
	Convey("Given a match between alice and bob won by bob", t, func() {
		m := model.Match{
			ID:        "m1",
			PlayerAID: "alice",
			PlayerBID: "bob",
			WinnerID:  "bob",
			PlayedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}

		Convey("Then both sides are involved", func() {
			So(m.Involves("alice"), ShouldBeTrue)
			So(m.Involves("bob"), ShouldBeTrue)
			So(m.Involves("carol"), ShouldBeFalse)
		})

		Convey("Then the opponent is the other side", func() {
			So(m.Opponent("alice"), ShouldEqual, "bob")
			So(m.Opponent("bob"), ShouldEqual, "alice")
		})

		Convey("Then alice is the loser", func() {
			So(m.LoserID(), ShouldEqual, "alice")
		})
	})
}
