package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/pong/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.BaseK, convey.ShouldEqual, 32)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"*"})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("PONG_ADDR", ":8080")
			t.Setenv("PONG_BASE_K", "24")
			t.Setenv("PONG_MIN_K", "12")
			t.Setenv("PONG_K_WINDOW", "5")
			t.Setenv("PONG_DEFAULT_RATING", "1500")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BaseK, convey.ShouldEqual, 24)
				convey.So(cfg.MinK, convey.ShouldEqual, 12)
				convey.So(cfg.MaxK, convey.ShouldEqual, 48)
				convey.So(cfg.KWindow, convey.ShouldEqual, 5)
				convey.So(cfg.DefaultRating, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			path := writeConfigFile(t, `
addr: ":9090"
store_driver: sqlite
store_dsn: "file:pong.db"
max_k: 40
cors_allowed_origins:
  - https://pong.example.com
`)
			t.Setenv("PONG_CONFIG", path)
			t.Setenv("PONG_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file and file wins over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "file:pong.db")
				convey.So(cfg.MaxK, convey.ShouldEqual, 40)
				convey.So(cfg.MinK, convey.ShouldEqual, 16)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"https://pong.example.com"})
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			t.Setenv("PONG_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			t.Setenv("PONG_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with inconsistent K bounds", func() {
			t.Setenv("PONG_MIN_K", "50")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			t.Setenv("PONG_K_WINDOW", "ten")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pong.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"PONG_CONFIG", "PONG_ADDR", "PONG_BASE_K", "PONG_MIN_K", "PONG_MAX_K",
		"PONG_K_WINDOW", "PONG_DEFAULT_RATING", "PONG_STORE_DRIVER", "PONG_STORE_DSN",
	} {
		_ = os.Unsetenv(key)
	}
}
