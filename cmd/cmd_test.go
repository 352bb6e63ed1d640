package cmd

import (
	"testing"
	"time"

	"github.com/offtube/offtube/config"
	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/key"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestParseValue(t *testing.T) {
	Convey("parseValue", t, func() {
		Convey("Should convert to the default's type", func() {
			v, err := parseValue(config.Default[key.QualityTarget], []string{"480"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 480)

			v, err = parseValue(config.Default[key.BrowserHeadless], []string{"false"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)

			v, err = parseValue(config.Default[key.ExtractOrder], []string{"native", "replay"})
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"native", "replay"})
		})

		Convey("Should validate durations", func() {
			v, err := parseValue(config.Default[key.CookiesCooldown], []string{"30m"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "30m")

			_, err = parseValue(config.Default[key.CookiesCooldown], []string{"soon"})
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject malformed numbers", func() {
			_, err := parseValue(config.Default[key.ServerRateBurst], []string{"many"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestErrUnknownKey(t *testing.T) {
	Convey("errUnknownKey suggests the nearest key", t, func() {
		err := errUnknownKey("quality.targte")
		So(err.Error(), ShouldContainSubstring, key.QualityTarget)
	})
}

func TestCookieHelpers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cookies := []credential.Cookie{
		{Domain: ".youtube.com", Path: "/", Name: "SID", Value: "secret-sid", Expires: now.Add(48 * time.Hour).Unix()},
		{Domain: ".google.com", Path: "/", Name: "HSID", Value: "secret-hsid", Expires: now.Add(2 * time.Hour).Unix()},
		{Domain: ".example.com", Path: "/", Name: "track", Value: "x"},
	}

	Convey("filterDomains keeps matching fragments only", t, func() {
		kept := filterDomains(cookies, []string{"youtube", "GOOGLE"})
		So(kept, ShouldHaveLength, 2)
		So(filterDomains(cookies, nil), ShouldHaveLength, 3)
	})

	Convey("soonestExpiry ignores session cookies", t, func() {
		soonest, ok := soonestExpiry(cookies)
		So(ok, ShouldBeTrue)
		So(soonest.Equal(now.Add(2*time.Hour)), ShouldBeTrue)

		_, ok = soonestExpiry(cookies[2:])
		So(ok, ShouldBeFalse)
	})

	Convey("renderBundle never prints cookie values", t, func() {
		out := renderBundle(credential.Bundle{Cookies: cookies, CapturedAt: now.Add(-time.Hour)}, now)
		So(out, ShouldContainSubstring, "3 cookies")
		So(out, ShouldContainSubstring, "youtube.com")
		So(out, ShouldNotContainSubstring, "secret-sid")
		So(out, ShouldNotContainSubstring, "secret-hsid")
	})
}
