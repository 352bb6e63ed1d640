package source

import (
	"errors"
	"net/url"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

var hosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}

func TestNewRequest(t *testing.T) {
	Convey("Given the default host allow-list", t, func() {
		Convey("A watch URL is accepted and keyed by video id", func() {
			req, err := NewRequest("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", hosts)
			So(err, ShouldBeNil)
			So(req.SourceID, ShouldEqual, "dQw4w9WgXcQ")
		})

		Convey("Short links, shorts and embeds share the same id", func() {
			for _, raw := range []string{
				"https://youtu.be/dQw4w9WgXcQ",
				"https://youtube.com/shorts/dQw4w9WgXcQ",
				"https://m.youtube.com/embed/dQw4w9WgXcQ?autoplay=1",
			} {
				req, err := NewRequest(raw, hosts)
				So(err, ShouldBeNil)
				So(req.SourceID, ShouldEqual, "dQw4w9WgXcQ")
			}
		})

		Convey("Host matching ignores case", func() {
			_, err := NewRequest("https://WWW.YouTube.com/watch?v=dQw4w9WgXcQ", hosts)
			So(err, ShouldBeNil)
		})

		Convey("A foreign host fails with ValidationError", func() {
			_, err := NewRequest("https://vimeo.com/12345", hosts)

			var verr *ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Reason, ShouldContainSubstring, "vimeo.com")
		})

		Convey("Look-alike hosts are rejected", func() {
			_, err := NewRequest("https://youtube.com.evil.example/watch?v=dQw4w9WgXcQ", hosts)
			So(err, ShouldNotBeNil)
		})

		Convey("Empty input and unsupported schemes are rejected", func() {
			_, err := NewRequest("   ", hosts)
			So(err, ShouldNotBeNil)

			_, err = NewRequest("ftp://youtube.com/watch?v=dQw4w9WgXcQ", hosts)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDeriveID(t *testing.T) {
	Convey("URLs without a recognisable video id hash deterministically", t, func() {
		a := DeriveID(lo.Must(url.Parse("https://www.youtube.com/playlist?list=PL123")))
		b := DeriveID(lo.Must(url.Parse("https://WWW.youtube.com/playlist?list=PL123")))
		c := DeriveID(lo.Must(url.Parse("https://www.youtube.com/playlist?list=PL124")))

		So(a, ShouldHaveLength, 16)
		So(a, ShouldEqual, b)
		So(a, ShouldNotEqual, c)
	})
}
