package simulate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/kira/internal/adapters/http/api"
	service "github.com/okian/kira/internal/app"
	"github.com/okian/kira/internal/simulate"
	"github.com/okian/kira/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func startService(opts ...service.Option) (*service.Service, *httptest.Server) {
	svc := service.New(append([]service.Option{
		service.WithLogger(logger.Nop()),
		service.WithWorkerCount(4),
		service.WithQueueSize(1000),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	return svc, httptest.NewServer(mux)
}

func TestRunner(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc, srv := startService()
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		cfg := simulate.DefaultConfig()
		cfg.BaseURL = srv.URL
		cfg.Events = 2000
		cfg.Users = 60
		cfg.BatchSize = 50
		cfg.Workers = 4
		cfg.Rate = 0
		cfg.TopN = 60
		cfg.Seed = 7
		cfg.Settle = 10 * time.Second
		cfg.CheckTotals = true
		cfg.OutputFile = filepath.Join(t.TempDir(), "events.jsonl")

		Convey("When a simulation runs with duplicates", func() {
			rep, err := simulate.NewRunner(cfg, logger.Nop()).Run(ctx)

			Convey("Then every distinct event should count exactly once", func() {
				So(err, ShouldBeNil)
				So(rep.Generated, ShouldEqual, 2200)
				So(rep.Accepted, ShouldEqual, 2200)
				So(rep.Rejected, ShouldEqual, 0)
				So(rep.Verified, ShouldEqual, rep.Users)
			})

			Convey("Then the events should be written to the output file", func() {
				data, rerr := os.ReadFile(cfg.OutputFile)
				So(rerr, ShouldBeNil)
				So(strings.Count(string(data), "\n"), ShouldEqual, 2200)
			})
		})

		Convey("When the configuration is invalid", func() {
			cfg.DuplicateRatio = 2
			_, err := simulate.NewRunner(cfg, logger.Nop()).Run(ctx)

			Convey("Then it should fail before any traffic", func() {
				So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})

	Convey("Given nothing listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		cfg := simulate.DefaultConfig()
		cfg.BaseURL = srv.URL
		cfg.Timeout = time.Second

		Convey("Then the health check should fail", func() {
			_, err := simulate.NewRunner(cfg, logger.Nop()).Run(context.Background())
			So(errors.Is(err, simulate.ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestRunnerBackpressure(t *testing.T) {
	Convey("Given a service with a tiny queue", t, func() {
		ctx := context.Background()
		svc, srv := startService(service.WithQueueSize(8), service.WithWorkerCount(1))
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		cfg := simulate.DefaultConfig()
		cfg.BaseURL = srv.URL
		cfg.Events = 300
		cfg.Users = 10
		cfg.DuplicateRatio = 0
		cfg.BatchSize = 20
		cfg.Workers = 4
		cfg.Rate = 0
		cfg.Seed = 3
		cfg.TopN = 10
		cfg.CheckTotals = true

		Convey("When the simulator overruns it", func() {
			rep, err := simulate.NewRunner(cfg, logger.Nop()).Run(ctx)

			Convey("Then refused events should be resent until every one lands", func() {
				So(err, ShouldBeNil)
				So(rep.Accepted, ShouldEqual, 300)
				So(rep.Verified, ShouldEqual, 10)
			})
		})
	})
}
