package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/ciwomuli/eve-wormhole/internal/app"
	"github.com/ciwomuli/eve-wormhole/internal/auth"
	"github.com/ciwomuli/eve-wormhole/internal/config"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("WORMHOLE_ADDR", ":8080")
			_ = os.Setenv("WORMHOLE_QUEUE_SIZE", "1000")
			_ = os.Setenv("WORMHOLE_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("WORMHOLE_ADDR")
				_ = os.Unsetenv("WORMHOLE_QUEUE_SIZE")
				_ = os.Unsetenv("WORMHOLE_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("WORMHOLE_STORE_DRIVER", "postgres")
			defer func() { _ = os.Unsetenv("WORMHOLE_STORE_DRIVER") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the assembled mux over a started service", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithWorkerCount(2))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		issuer, err := auth.NewIssuer("main-test", time.Hour)
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(ctx, svc, issuer)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then every surface is mounted", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/menu/all").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/wormhole/listuser").Code, convey.ShouldEqual, http.StatusUnauthorized)
		})

		convey.Convey("Then client routes fall back to the frontend shell", func() {
			for _, p := range []string{"/", "/wormhole", "/submit"} {
				w := get(p)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldContainSubstring, "text/html")
			}
			convey.So(get("/nowhere").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then an authorized pilot can list their wormholes", func() {
			tok, _, err := issuer.Issue("42", "Pilot One")
			convey.So(err, convey.ShouldBeNil)

			req := httptest.NewRequest(http.MethodGet, "/wormhole/listuser", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(strings.TrimSpace(w.Body.String()), convey.ShouldEqual, `{"code":0,"data":[],"message":"ok"}`)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config listening on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 2
		cfg.JWTSecret = "main-test-secret-0123456789abcdef"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg), convey.ShouldBeNil)
			})
		})

		convey.Convey("When metrics are disabled", func() {
			cfg.MetricsEnabled = false
			cfg.MetricsRefreshInterval = time.Second
			defer metrics.SetEnabled(true)
			defer metrics.SetRefreshInterval(metrics.RefreshInterval())
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then run applies the metrics settings", func() {
				convey.So(run(ctx, cfg), convey.ShouldBeNil)
				convey.So(metrics.Enabled(), convey.ShouldBeFalse)
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, time.Second)
			})
		})

		convey.Convey("When the address cannot be bound", func() {
			cfg.Addr = "127.0.0.1:-1"

			convey.Convey("Then run reports the listen error", func() {
				err := run(context.Background(), cfg)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "http server")
			})
		})

		convey.Convey("When the secret is empty", func() {
			cfg.JWTSecret = ""

			convey.Convey("Then run fails before starting anything", func() {
				err := run(context.Background(), cfg)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the secret is a short placeholder", func() {
			cfg.JWTSecret = "change-me"

			convey.Convey("Then run refuses to serve tokens signed with it", func() {
				err := run(context.Background(), cfg)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the metrics updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			svc := app.New()

			convey.Convey("Then they return without panicking", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
				convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating metrics directly", func() {
			svc := app.New(app.WithWorkerCount(1))
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(context.Background()) }()

			convey.Convey("Then system and service gauges update", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When creating a metrics manager on a private registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))

			convey.Convey("Then it is usable", func() {
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}
