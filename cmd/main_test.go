package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	repository "github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/config"
	"github.com/okian/pong/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given PONG_ environment variables", t, func() {
		t.Setenv("PONG_ADDR", ":8080")
		t.Setenv("PONG_STORE_DRIVER", "sqlite")
		t.Setenv("PONG_STORE_DSN", filepath.Join(t.TempDir(), "pong.db"))
		t.Setenv("PONG_BASE_K", "24")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, repository.DriverSQLite)
			convey.So(cfg.BaseK, convey.ShouldEqual, 24.0)

			convey.Convey("And the service should start on the configured store", func() {
				ctx := context.Background()
				svc, err := newService(ctx, cfg, logger.Get())
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer svc.Stop()

				stats := svc.GetStats()
				convey.So(stats["baseK"], convey.ShouldEqual, 24.0)
				convey.So(stats["totalPlayers"], convey.ShouldEqual, 0)
			})
		})
	})
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a config naming an unknown driver", t, func() {
		cfg := config.New()
		cfg.StoreDriver = "oracle"
		cfg.StoreDSN = "x"

		convey.Convey("Then building the service fails", func() {
			_, err := newService(context.Background(), cfg, logger.Get())
			convey.So(errors.Is(err, repository.ErrUnknownDriver), convey.ShouldBeTrue)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc, err := newService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, svc, cfg)

		convey.Convey("Then API and docs routes are mounted", func() {
			for _, path := range []string{"/healthz", "/metrics", "/stats", "/leaderboard", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then CORS preflight requests are answered", func() {
			req := httptest.NewRequest(http.MethodOptions, "/matches", http.NoBody)
			req.Header.Set("Origin", "http://example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config listening on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg, logger.Get()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given the service metrics updater", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		svc, err := newService(ctx, config.New(), logger.Get())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then it returns once the context ends", func() {
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
