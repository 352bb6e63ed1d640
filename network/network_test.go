package network

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRandomUserAgent(t *testing.T) {
	Convey("RandomUserAgent always returns a pooled value", t, func() {
		pool := UserAgents()
		for i := 0; i < 50; i++ {
			So(lo.Contains(pool, RandomUserAgent()), ShouldBeTrue)
		}
	})
}

func TestChromeTransport(t *testing.T) {
	Convey("Given a plain HTTP server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}))
		defer srv.Close()

		Convey("Non-TLS requests go through the HTTP/1.1 transport", func() {
			client := &http.Client{Transport: NewChromeTransport()}
			resp, err := client.Get(srv.URL)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			So(string(body), ShouldEqual, "ok")
		})
	})
}

func TestNewJar(t *testing.T) {
	Convey("Cookies set on a subdomain are visible to the registrable domain", t, func() {
		jar := NewJar()
		accounts := lo.Must(url.Parse("https://accounts.example.com/"))
		www := lo.Must(url.Parse("https://www.example.com/"))

		jar.SetCookies(accounts, []*http.Cookie{{Name: "SID", Value: "x", Domain: "example.com", Path: "/"}})
		So(jar.Cookies(www), ShouldHaveLength, 1)
	})
}
