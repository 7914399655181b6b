package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/kira/internal/adapters/http/api"
	service "github.com/okian/kira/internal/app"
	"github.com/okian/kira/internal/simulate"
	"github.com/okian/kira/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestRootCmd(t *testing.T) {
	convey.Convey("Given the simulator command and a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithLogger(logger.Nop()), service.WithWorkerCount(2))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		var out, errOut bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)

		convey.Convey("When it runs a small workload", func() {
			cmd.SetArgs([]string{"--url", srv.URL, "-n", "200", "--users", "15", "--rate", "0", "--seed", "11", "--check-totals", "--log-level", "error"})
			err := cmd.ExecuteContext(ctx)

			convey.Convey("Then it should print a passing report", func() {
				convey.So(err, convey.ShouldBeNil)
				var rep simulate.Report
				convey.So(json.Unmarshal(out.Bytes(), &rep), convey.ShouldBeNil)
				convey.So(rep.Generated, convey.ShouldEqual, 220)
				convey.So(rep.Verified, convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When given positional arguments", func() {
			cmd.SetArgs([]string{"extra"})

			convey.Convey("Then it should refuse them", func() {
				convey.So(cmd.ExecuteContext(ctx), convey.ShouldNotBeNil)
			})
		})
	})
}
