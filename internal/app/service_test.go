package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/pong/internal/app"
	"github.com/okian/pong/internal/domain/rating"
	"github.com/okian/pong/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report the default engine parameters", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["baseK"], ShouldEqual, 32.0)
			So(stats["minK"], ShouldEqual, 16.0)
			So(stats["maxK"], ShouldEqual, 48.0)
			So(stats["kWindow"], ShouldEqual, 10)
			So(stats["defaultRating"], ShouldEqual, 1000.0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithRatingOptions(rating.WithBaseK(24), rating.WithKBounds(10, 40), rating.WithWindow(5)),
			service.WithDefaultRating(1200),
			service.WithDedupeSize(10),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["baseK"], ShouldEqual, 24.0)
			So(stats["minK"], ShouldEqual, 10.0)
			So(stats["maxK"], ShouldEqual, 40.0)
			So(stats["kWindow"], ShouldEqual, 5)
			So(stats["defaultRating"], ShouldEqual, 1200.0)
			So(stats["dedupeSize"], ShouldEqual, 10)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then every operation fails with ErrNotStarted", func() {
			_, err := svc.RegisterPlayer(ctx, "ann")
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.TopN(ctx, 10)
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.RecordMatch(ctx, service.MatchRequest{})
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})

	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then starting again is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()
		})

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again should be safe", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_RegisterPlayer(t *testing.T) {
	Convey("Given a started service with a fixed clock", t, func() {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		svc := service.New(service.WithClock(func() time.Time { return now }))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When registering a player", func() {
			p, err := svc.RegisterPlayer(ctx, "  Ann  ")

			Convey("Then the player gets an id, the trimmed name and the default rating", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldNotBeEmpty)
				So(p.Name, ShouldEqual, "Ann")
				So(p.Rating, ShouldEqual, 1000.0)
				So(p.JoinedAt, ShouldEqual, now)
				So(p.LastPlayedAt.IsZero(), ShouldBeTrue)
			})

			Convey("And the player is on the leaderboard", func() {
				entry, err := svc.Rank(ctx, p.ID)
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Name, ShouldEqual, "Ann")
			})
		})

		Convey("When registering an empty name", func() {
			_, err := svc.RegisterPlayer(ctx, "   ")

			Convey("Then it fails with ErrInvalidName", func() {
				So(errors.Is(err, service.ErrInvalidName), ShouldBeTrue)
			})
		})
	})
}
