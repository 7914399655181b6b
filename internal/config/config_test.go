package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/kira/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.ShardCount, convey.ShouldEqual, 32)
			convey.So(cfg.DedupeWindow, convey.ShouldEqual, 72*time.Hour)
			convey.So(cfg.DedupeSweepInterval, convey.ShouldEqual, time.Minute)
			convey.So(cfg.CheckpointPath, convey.ShouldBeEmpty)
			convey.So(cfg.MinClaimPoints, convey.ShouldEqual, 10)
			convey.So(cfg.TokenDecimals, convey.ShouldEqual, 9)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
			key    string
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }, "addr"},
			{"zero queue", func(c *config.Config) { c.EventQueueSize = 0 }, "queue_size"},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }, "worker_count"},
			{"negative window", func(c *config.Config) { c.DedupeWindow = -time.Second }, "dedupe_window"},
			{"zero sweep", func(c *config.Config) { c.DedupeSweepInterval = 0 }, "dedupe_sweep_interval"},
			{"unknown log format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
			{"too many decimals", func(c *config.Config) { c.TokenDecimals = 19 }, "token_decimals"},
			{"unknown weight platform", func(c *config.Config) {
				c.Weights = map[string]map[string]int{"myspace": {"like": 1}}
			}, "weights.myspace"},
			{"unknown weight action", func(c *config.Config) {
				c.Weights = map[string]map[string]int{"twitter": {"poke": 1}}
			}, "weights.twitter.poke"},
			{"negative weight", func(c *config.Config) {
				c.Weights = map[string]map[string]int{"twitter": {"like": -1}}
			}, "weights.twitter.like"},
			{"unknown default platform", func(c *config.Config) {
				c.PlatformDefaults = map[string]int{"slack": 1}
			}, "platform_defaults.slack"},
		}
		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then it should name the offending key", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.key)
				})
			})
		}

		convey.Convey("When the zero window disables expiry", func() {
			cfg.DedupeWindow = 0

			convey.Convey("Then it should still validate", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
