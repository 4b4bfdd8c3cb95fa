package lifetime

import (
	"context"
	"testing"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTableEstimator(t *testing.T) {
	Convey("Given an estimator with a small type table", t, func() {
		ctx := context.Background()
		at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
		est := NewTableEstimator(WithTypeLifetimesHours(map[string]float64{
			"k162": 16,
			"B274": 24,
			"Z000": -1,
		}, 12))

		Convey("When the type is known", func() {
			res, err := est.Estimate(ctx, Input{Type: "B274", Life: model.LifeStable, SubmittedAt: at})

			Convey("Then its table lifetime applies", func() {
				So(err, ShouldBeNil)
				So(res.Lifetime, ShouldEqual, 24*time.Hour)
				So(res.ExpiresAt, ShouldEqual, at.Add(24*time.Hour))
			})
		})

		Convey("When the type differs only in case", func() {
			res, err := est.Estimate(ctx, Input{Type: "K162", SubmittedAt: at})

			Convey("Then lookup is case-insensitive", func() {
				So(err, ShouldBeNil)
				So(res.Lifetime, ShouldEqual, 16*time.Hour)
			})
		})

		Convey("When the type is unknown or had a non-positive entry", func() {
			unknown, _ := est.Estimate(ctx, Input{Type: "Q003", SubmittedAt: at})
			ignored, _ := est.Estimate(ctx, Input{Type: "Z000", SubmittedAt: at})

			Convey("Then the default lifetime applies", func() {
				So(unknown.Lifetime, ShouldEqual, 12*time.Hour)
				So(ignored.Lifetime, ShouldEqual, 12*time.Hour)
			})
		})

		Convey("When the wormhole is end of life", func() {
			res, err := est.Estimate(ctx, Input{Type: "B274", Life: model.LifeEOL, SubmittedAt: at})

			Convey("Then the remaining life is capped", func() {
				So(err, ShouldBeNil)
				So(res.Lifetime, ShouldEqual, EOLRemaining)
				So(res.ExpiresAt, ShouldEqual, at.Add(EOLRemaining))
			})
		})

		Convey("When no submission time is given", func() {
			before := time.Now().UTC()
			res, err := est.Estimate(ctx, Input{Type: "K162"})

			Convey("Then the estimate starts from now", func() {
				So(err, ShouldBeNil)
				So(res.ExpiresAt, ShouldHappenOnOrAfter, before.Add(16*time.Hour))
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := est.Estimate(cctx, Input{Type: "K162", SubmittedAt: at})

			Convey("Then it returns an error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given an estimator with a short EOL cap", t, func() {
		est := NewTableEstimator(WithEOLRemaining(time.Hour))

		Convey("Then EOL reports use that cap", func() {
			res, err := est.Estimate(context.Background(), Input{Type: "K162", Life: model.LifeEOL})
			So(err, ShouldBeNil)
			So(res.Lifetime, ShouldEqual, time.Hour)
		})
	})
}
