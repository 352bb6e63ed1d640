package app

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/offtube/offtube/config"
	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/where"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

type fakeRefresher struct {
	store *credential.Store
	err   error
	calls int
}

func (r *fakeRefresher) Refresh(context.Context, uint64) (credential.Bundle, error) {
	r.calls++
	if r.err != nil {
		return credential.Bundle{}, r.err
	}

	b := credential.Bundle{Cookies: []credential.Cookie{{Domain: ".youtube.com", Path: "/", Name: "SID", Value: "minted"}}}
	r.store.Set(b)
	return b, nil
}

func TestApp(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		filesystem.SetMemMapFs()
		lo.Must0(os.Setenv(where.EnvDataPath, "/srv/offtube"))
		defer os.Unsetenv(where.EnvDataPath)
		lo.Must0(config.Setup())

		Convey("Every component is wired", func() {
			a, err := New()
			So(err, ShouldBeNil)
			So(a.Orchestrator.Strategies(), ShouldResemble, []string{"native", "scrape:mates", "scrape:savefrom", "replay"})
			So(a.Storage.Root, ShouldEqual, "/srv/offtube")
			So(a.Storage.Secret, ShouldHaveLength, 32)
		})

		Convey("An unknown strategy name is rejected", func() {
			viper.Set(key.ExtractOrder, []string{"native", "carrier-pigeon"})
			defer viper.Set(key.ExtractOrder, config.Default[key.ExtractOrder].Value)

			_, err := New()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "carrier-pigeon")
		})

		Convey("Persisted cookies are loaded into the store", func() {
			a, err := New()
			So(err, ShouldBeNil)

			a.LoadCookies()
			So(a.Store.Get().IsAbsent(), ShouldBeTrue)

			bundle := credential.Bundle{Cookies: []credential.Cookie{{Domain: ".youtube.com", Path: "/", Name: "SID", Value: "v"}}}
			So(credential.Save(where.Cookies(), bundle), ShouldBeNil)

			a.LoadCookies()
			So(a.Store.Get().MustGet().Cookies, ShouldResemble, bundle.Cookies)

			a.Native.Run = func(context.Context, string, ...string) ([]byte, []byte, error) {
				return []byte("2026.01.01\n"), nil, nil
			}

			debug := a.Debug()
			So(debug["tool"], ShouldEqual, "2026.01.01")
			So(debug["cookies"], ShouldContainKey, "count")
			So(debug, ShouldNotContainKey, "secret")
		})
	})

	Convey("Given an app without persisted cookies", t, func() {
		filesystem.SetMemMapFs()
		lo.Must0(os.Setenv(where.EnvDataPath, "/srv/offtube"))
		defer os.Unsetenv(where.EnvDataPath)
		lo.Must0(config.Setup())

		a, err := New()
		So(err, ShouldBeNil)
		refresher := &fakeRefresher{store: a.Store}
		a.Refresher = refresher

		Convey("Bootstrap refreshes the session", func() {
			a.Bootstrap(context.Background())
			So(refresher.calls, ShouldEqual, 1)
			So(a.Store.Get().MustGet().Cookies[0].Value, ShouldEqual, "minted")
		})

		Convey("A failed refresh leaves the store empty without failing", func() {
			refresher.err = errors.New("identity provider unreachable")
			a.Bootstrap(context.Background())
			So(refresher.calls, ShouldEqual, 1)
			So(a.Store.Get().IsAbsent(), ShouldBeTrue)
		})

		Convey("Persisted cookies skip the refresh", func() {
			bundle := credential.Bundle{Cookies: []credential.Cookie{{Domain: ".youtube.com", Path: "/", Name: "SID", Value: "disk"}}}
			So(credential.Save(where.Cookies(), bundle), ShouldBeNil)

			a.Bootstrap(context.Background())
			So(refresher.calls, ShouldEqual, 0)
			So(a.Store.Get().MustGet().Cookies[0].Value, ShouldEqual, "disk")
		})
	})

	Convey("publicPath maps keys to routes", t, func() {
		So(publicPath("videos/dQw4w9WgXcQ.mp4"), ShouldEqual, "/media/dQw4w9WgXcQ")
		So(publicPath("thumbnails/dQw4w9WgXcQ.jpg"), ShouldEqual, "/thumbnails/dQw4w9WgXcQ")
	})
}
