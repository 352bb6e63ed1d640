package version

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		Convey("Should order date based releases", func() {
			So(compare("2024.08.06", "2024.07.25"), ShouldEqual, 1)
			So(compare("2023.12.30", "2024.01.01"), ShouldEqual, -1)
			So(compare("2024.08.06", "2024.08.06"), ShouldEqual, 0)
		})

		Convey("Should treat a build suffix as newer", func() {
			So(compare("2024.08.06.232808", "2024.08.06"), ShouldEqual, 1)
			So(compare("2024.08.06.0", "2024.08.06"), ShouldEqual, 0)
		})

		Convey("Should strip prefixes", func() {
			So(compare("v1.2.3", "1.2.3"), ShouldEqual, 0)
			So(compare("nightly@2024.08.07.000101", "2024.08.06"), ShouldEqual, 1)
		})

		Convey("Should reject garbage", func() {
			_, err := Compare("abc", "1.0.0")
			So(err, ShouldNotBeNil)

			_, err = Compare("", "1.0.0")
			So(err, ShouldNotBeNil)
		})
	})
}

func compare(a, b string) int {
	c, err := Compare(a, b)
	So(err, ShouldBeNil)
	return c
}

func TestLatest(t *testing.T) {
	Convey("Given a release feed", t, func() {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, `{"tag_name": "2024.08.06"}`)
		}))
		defer srv.Close()

		viper.Set(key.ToolReleaseURL, srv.URL)
		defer viper.Set(key.ToolReleaseURL, "")
		_ = filesystem.API().RemoveAll(releasePath())

		Convey("It returns and caches the tag", func() {
			latest, err := Latest(context.Background())
			So(err, ShouldBeNil)
			So(latest, ShouldEqual, "2024.08.06")

			latest, err = Latest(context.Background())
			So(err, ShouldBeNil)
			So(latest, ShouldEqual, "2024.08.06")
			So(calls, ShouldEqual, 1)
		})

		Convey("Outdated compares against the installed build", func() {
			latest, outdated, err := Outdated(context.Background(), "2024.07.25")
			So(err, ShouldBeNil)
			So(latest, ShouldEqual, "2024.08.06")
			So(outdated, ShouldBeTrue)

			_, outdated, err = Outdated(context.Background(), "2024.08.06")
			So(err, ShouldBeNil)
			So(outdated, ShouldBeFalse)
		})
	})

	Convey("Without a feed the check is disabled", t, func() {
		viper.Set(key.ToolReleaseURL, "")
		_, err := Latest(context.Background())
		So(err, ShouldEqual, ErrDisabled)
	})
}
