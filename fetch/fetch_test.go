package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/source"
	"github.com/offtube/offtube/storage"
	"github.com/samber/lo"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type memIndex map[string]source.StoredArtifact

func (m memIndex) Put(a source.StoredArtifact) error {
	m[a.SourceID] = a
	return nil
}

func TestFetcher(t *testing.T) {
	Convey("Given a media server", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()

		var (
			body      = []byte("0123456789")
			thumbCode = http.StatusOK
			lying     bool
		)

		mux := http.NewServeMux()
		mux.HandleFunc("/video.mp4", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Cookie") != "SID=x" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if lying {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)+10))
			}
			_, _ = w.Write(body)
		})
		mux.HandleFunc("/thumb.jpg", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(thumbCode)
			_, _ = w.Write([]byte("jpg"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		local := storage.NewLocal("/data", nil, nil)
		index := memIndex{}
		f := New(srv.Client(), local, index, "/data/tmp", time.Minute)

		media := &source.ResolvedMedia{
			SourceID:     "abc",
			Title:        "Never",
			MediaURL:     srv.URL + "/video.mp4",
			ThumbnailURL: mo.Some(srv.URL + "/thumb.jpg"),
			Quality:      720,
			Headers:      map[string]string{"Cookie": "SID=x"},
		}

		Convey("Video and thumbnail are stored and indexed", func() {
			a, err := f.Persist(context.Background(), media)
			So(err, ShouldBeNil)
			So(a.Size, ShouldEqual, len(body))
			So(a.VideoPath, ShouldEqual, "videos/abc.mp4")
			So(a.ThumbnailPath, ShouldEqual, "thumbnails/abc.jpg")
			So(string(lo.Must(fs.ReadFile(local.Path(a.VideoPath)))), ShouldEqual, string(body))
			So(index["abc"].Quality, ShouldEqual, 720)
			So(lo.Must(fs.ReadDir("/data/tmp")), ShouldBeEmpty)
		})

		Convey("A failing thumbnail does not fail the download", func() {
			thumbCode = http.StatusNotFound

			a, err := f.Persist(context.Background(), media)
			So(err, ShouldBeNil)
			So(a.HasThumbnail(), ShouldBeFalse)
		})

		Convey("An empty body is rejected and nothing is committed", func() {
			body = nil

			_, err := f.Persist(context.Background(), media)

			var ferr *Error
			So(errors.As(err, &ferr), ShouldBeTrue)
			So(ferr.Kind, ShouldEqual, EmptyBody)
			So(local.Exists("videos/abc.mp4"), ShouldBeFalse)
			So(index, ShouldBeEmpty)
		})

		Convey("A refused request is a network error", func() {
			media.Headers = nil

			_, err := f.Persist(context.Background(), media)

			var ferr *Error
			So(errors.As(err, &ferr), ShouldBeTrue)
			So(ferr.Kind, ShouldEqual, NetworkError)
		})

		Convey("A truncated body leaves no partial file", func() {
			lying = true

			_, err := f.Persist(context.Background(), media)

			var ferr *Error
			So(errors.As(err, &ferr), ShouldBeTrue)
			So(ferr.Kind, ShouldEqual, NetworkError)
			So(local.Exists("videos/abc.mp4"), ShouldBeFalse)
			So(lo.Must(fs.ReadDir("/data/tmp")), ShouldBeEmpty)
		})
	})
}
