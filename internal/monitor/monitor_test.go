package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/extract"
	"github.com/offtube/offtube/source"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProbe struct {
	err   error
	calls atomic.Int32
	in    extract.Input
}

func (p *fakeProbe) Name() string { return "native" }

func (p *fakeProbe) Extract(_ context.Context, in extract.Input) (*source.ResolvedMedia, error) {
	p.calls.Add(1)
	p.in = in
	if p.err != nil {
		return nil, p.err
	}
	return &source.ResolvedMedia{MediaURL: "https://media.example/v"}, nil
}

type fakeRefresher struct {
	err   error
	calls atomic.Int32
}

func (r *fakeRefresher) Refresh(context.Context, uint64) (credential.Bundle, error) {
	r.calls.Add(1)
	return credential.Bundle{Cookies: make([]credential.Cookie, 2)}, r.err
}

func TestMonitor(t *testing.T) {
	Convey("Given a monitor with a 6h max age", t, func() {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		store := credential.NewStore()
		probe := &fakeProbe{}
		refresher := &fakeRefresher{}

		m := New(store, refresher, probe, "https://www.youtube.com/watch?v=jNQXAC9IVRw", 6*time.Hour, time.Hour)
		m.now = func() time.Time { return now }

		cookies := []credential.Cookie{{Domain: ".youtube.com", Name: "SID", Value: "v"}}

		Convey("A young bundle is not probed", func() {
			store.Set(credential.Bundle{Cookies: cookies, CapturedAt: now.Add(-time.Hour)})

			So(m.Check(context.Background()), ShouldBeNil)
			So(probe.calls.Load(), ShouldEqual, 0)
			So(m.Last().Outcome, ShouldEqual, Healthy)
		})

		Convey("An old bundle is probed against the known source", func() {
			store.Set(credential.Bundle{Cookies: cookies, CapturedAt: now.Add(-7 * time.Hour)})

			So(m.Check(context.Background()), ShouldBeNil)
			So(probe.calls.Load(), ShouldEqual, 1)
			So(probe.in.SourceID, ShouldEqual, "jNQXAC9IVRw")
			So(probe.in.Credentials.IsPresent(), ShouldBeTrue)
			So(refresher.calls.Load(), ShouldEqual, 0)
			So(m.Last().Outcome, ShouldEqual, Probed)
		})

		Convey("An auth failure refreshes proactively", func() {
			probe.err = &extract.Error{Kind: extract.AuthRequired}

			So(m.Check(context.Background()), ShouldBeNil)
			So(refresher.calls.Load(), ShouldEqual, 1)
			So(m.Last().Outcome, ShouldEqual, Refreshed)
		})

		Convey("Other failures do not refresh", func() {
			probe.err = &extract.Error{Kind: extract.Transient}

			So(m.Check(context.Background()), ShouldBeNil)
			So(refresher.calls.Load(), ShouldEqual, 0)
		})

		Convey("A failed refresh is reported", func() {
			probe.err = &extract.Error{Kind: extract.AuthRequired}
			refresher.err = errors.New("challenged")

			So(m.Check(context.Background()), ShouldNotBeNil)
			So(m.Last().Outcome, ShouldEqual, Failed)
		})

		Convey("Nothing is probed during a cooldown", func() {
			store.StartCooldown(time.Hour)

			So(m.Check(context.Background()), ShouldBeNil)
			So(probe.calls.Load(), ShouldEqual, 0)
			So(m.Last().Outcome, ShouldEqual, Skipped)
		})
	})
}
