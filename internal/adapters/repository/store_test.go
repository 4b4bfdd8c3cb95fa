package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func wormhole(id, submitter string, offset time.Duration) model.Wormhole {
	return model.Wormhole{
		Submission: model.Submission{
			ID: id, SubmitterID: submitter, SubmitterName: "pilot " + submitter,
			Signature: "ABC-123", SourceSystem: "J123456", TargetSystem: "Jita",
			Type: "K162", Life: model.LifeStable, Mass: model.MassDestab, Note: "n",
			SubmittedAt: base.Add(offset),
		},
		ExpiresAt: base.Add(offset + 16*time.Hour),
	}
}

// storeContract runs the behaviour every Store must share.
func storeContract(s Store) {
	ctx := context.Background()

	Convey("When wormholes are saved for two submitters", func() {
		So(s.Save(ctx, wormhole("a1", "alice", 0)), ShouldBeNil)
		So(s.Save(ctx, wormhole("a2", "alice", time.Minute)), ShouldBeNil)
		So(s.Save(ctx, wormhole("a3", "alice", 500*time.Millisecond)), ShouldBeNil)
		So(s.Save(ctx, wormhole("b1", "bob", 0)), ShouldBeNil)

		Convey("Then each submitter sees only their own, newest first", func() {
			got, err := s.ListBySubmitter(ctx, "alice")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 3)
			So(got[0].ID, ShouldEqual, "a2")
			So(got[1].ID, ShouldEqual, "a3")
			So(got[2].ID, ShouldEqual, "a1")
			So(got[0].SubmittedAt.Equal(base.Add(time.Minute)), ShouldBeTrue)
			So(got[0].ExpiresAt.Equal(base.Add(time.Minute+16*time.Hour)), ShouldBeTrue)
			So(got[0].Mass, ShouldEqual, model.MassDestab)
			So(got[0].SubmitterName, ShouldEqual, "pilot alice")

			bob, err := s.ListBySubmitter(ctx, "bob")
			So(err, ShouldBeNil)
			So(bob, ShouldHaveLength, 1)
			So(s.Count(ctx), ShouldEqual, 4)
		})

		Convey("Then saving an existing ID replaces it", func() {
			updated := wormhole("a1", "alice", 0)
			updated.Life = model.LifeEOL
			So(s.Save(ctx, updated), ShouldBeNil)

			got, _ := s.ListBySubmitter(ctx, "alice")
			So(got, ShouldHaveLength, 3)
			So(got[2].Life, ShouldEqual, model.LifeEOL)
			So(s.Count(ctx), ShouldEqual, 4)
		})
	})

	Convey("When listing an unknown submitter", func() {
		got, err := s.ListBySubmitter(ctx, "nobody")

		Convey("Then the result is empty, not nil", func() {
			So(err, ShouldBeNil)
			So(got, ShouldNotBeNil)
			So(got, ShouldBeEmpty)
		})
	})

	Convey("When required fields are missing", func() {
		Convey("Then Save rejects them", func() {
			So(errors.Is(s.Save(ctx, wormhole("", "alice", 0)), ErrEmptyID), ShouldBeTrue)
			So(errors.Is(s.Save(ctx, wormhole("x", "", 0)), ErrEmptySubmitter), ShouldBeTrue)
			_, err := s.ListBySubmitter(ctx, "")
			So(errors.Is(err, ErrEmptySubmitter), ShouldBeTrue)
		})
	})
}

func TestShardedStore(t *testing.T) {
	Convey("Given a sharded memory store", t, func() {
		s := NewShardedStore(context.Background(), WithShardCount(4))
		Reset(func() { _ = s.Close() })

		storeContract(s)

		Convey("When a wormhole moves to another submitter", func() {
			ctx := context.Background()
			So(s.Save(ctx, wormhole("m1", "alice", 0)), ShouldBeNil)
			So(s.Save(ctx, wormhole("m1", "carol", 0)), ShouldBeNil)

			Convey("Then it is only listed for the new submitter", func() {
				alice, _ := s.ListBySubmitter(ctx, "alice")
				carol, _ := s.ListBySubmitter(ctx, "carol")
				So(alice, ShouldBeEmpty)
				So(carol, ShouldHaveLength, 1)
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When many goroutines save concurrently", func() {
			ctx := context.Background()
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						_ = s.Save(ctx, wormhole(fmt.Sprintf("w-%d-%d", g, i), fmt.Sprintf("p%d", g), time.Duration(i)*time.Second))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then nothing is lost", func() {
				So(s.Count(ctx), ShouldEqual, 400)
				got, _ := s.ListBySubmitter(ctx, "p3")
				So(got, ShouldHaveLength, 50)
				So(got[0].ID, ShouldEqual, "w-3-49")
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			Convey("Then saves fail", func() {
				So(s.Save(context.Background(), wormhole("z", "alice", 0)), ShouldEqual, ErrClosed)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Convey("Then operations fail", func() {
				So(s.Save(ctx, wormhole("c", "alice", 0)), ShouldNotBeNil)
				_, err := s.ListBySubmitter(ctx, "alice")
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a sqlite store in a temp dir", t, func() {
		path := filepath.Join(t.TempDir(), "data", "wormhole.db")
		s, err := NewSQLiteStore(context.Background(), path)
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		storeContract(s)

		Convey("When the database is reopened", func() {
			ctx := context.Background()
			So(s.Save(ctx, wormhole("p1", "alice", 0)), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			reopened, err := NewSQLiteStore(ctx, path)
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then saved wormholes persist", func() {
				got, err := reopened.ListBySubmitter(ctx, "alice")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "p1")
			})
		})
	})

	Convey("Given an in-memory sqlite store", t, func() {
		s, err := NewSQLiteStore(context.Background(), ":memory:")
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("Then it behaves like the file-backed store", func() {
			So(s.Save(context.Background(), wormhole("m", "alice", 0)), ShouldBeNil)
			So(s.Count(context.Background()), ShouldEqual, 1)
		})
	})
}
