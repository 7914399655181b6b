package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/kira/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.DedupeWindow, convey.ShouldEqual, 72*time.Hour)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KIRA_ADDR", ":9090")
			_ = os.Setenv("KIRA_QUEUE_SIZE", "5000")
			_ = os.Setenv("KIRA_WORKER_COUNT", "16")
			_ = os.Setenv("KIRA_DEDUPE_WINDOW", "48h")
			_ = os.Setenv("KIRA_CHECKPOINT_PATH", "/var/lib/kira/wm.db")
			_ = os.Setenv("KIRA_REPLAY_FILES", "a.jsonl,b.jsonl")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 5000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.DedupeWindow, convey.ShouldEqual, 48*time.Hour)
				convey.So(cfg.CheckpointPath, convey.ShouldEqual, "/var/lib/kira/wm.db")
				convey.So(cfg.ReplayFiles, convey.ShouldResemble, []string{"a.jsonl", "b.jsonl"})
			})
		})

		convey.Convey("When a list variable has padding and empty items", func() {
			_ = os.Setenv("KIRA_REPLAY_FILES", " one.jsonl , ,two.jsonl")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should split into trimmed paths", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ReplayFiles, convey.ShouldResemble, []string{"one.jsonl", "two.jsonl"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":7070"
log_format: json
shard_count: 8
dedupe_sweep_interval: 30s
min_claim_points: 100
weights:
  twitter:
    like: 7
  discord:
    voice: 9
platform_defaults:
  telegram: 2
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KIRA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load scalars and weight tables from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
				convey.So(cfg.DedupeSweepInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.MinClaimPoints, convey.ShouldEqual, 100)
				convey.So(cfg.Weights["twitter"]["like"], convey.ShouldEqual, 7)
				convey.So(cfg.Weights["discord"]["voice"], convey.ShouldEqual, 9)
				convey.So(cfg.PlatformDefaults["telegram"], convey.ShouldEqual, 2)
			})

			convey.Convey("Then fields missing from the file should keep defaults", func() {
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.DedupeWindow, convey.ShouldEqual, 72*time.Hour)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":7070\"\nshard_count: 8\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KIRA_CONFIG", tmpFile)
			_ = os.Setenv("KIRA_ADDR", ":6060")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KIRA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("KIRA_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("KIRA_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When addr is empty", func() {
			_ = os.Setenv("KIRA_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file names an unknown platform", func() {
			tmpFile := createTempConfigFile("weights:\n  myspace:\n    like: 1\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KIRA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"KIRA_CONFIG",
		"KIRA_ADDR",
		"KIRA_QUEUE_SIZE",
		"KIRA_WORKER_COUNT",
		"KIRA_DEDUPE_WINDOW",
		"KIRA_CHECKPOINT_PATH",
		"KIRA_REPLAY_FILES",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "kira-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
