package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/filesystem"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

var classifier = Classifier{
	Auth:      []string{"cookies", "sign in", "private video", "http error 403"},
	NotFound:  []string{"video unavailable", "http error 404"},
	Transient: []string{"timed out", "connection reset"},
}

var session = credential.Bundle{Cookies: []credential.Cookie{
	{Domain: ".example.com", Path: "/", Secure: true, Name: "SID", Value: "s3cr3t"},
}}

func TestClassifier(t *testing.T) {
	Convey("Classify", t, func() {
		So(classifier.Classify("ERROR: Sign in to confirm your age"), ShouldEqual, AuthRequired)
		So(classifier.Classify("ERROR: Private video. Video unavailable"), ShouldEqual, AuthRequired)
		So(classifier.Classify("ERROR: Video unavailable"), ShouldEqual, NotFound)
		So(classifier.Classify("ERROR: Connection reset by peer"), ShouldEqual, Transient)
		So(classifier.Classify("ERROR: Read timed out"), ShouldEqual, Transient)
		So(classifier.Classify("something odd happened"), ShouldEqual, MalformedResponse)
		So(Classifier{Auth: classifier.Auth}.Classify("connection reset"), ShouldEqual, MalformedResponse)
	})

	Convey("ClassifyStatus", t, func() {
		for code, want := range map[int]Kind{403: AuthRequired, 401: AuthRequired, 404: NotFound, 410: NotFound, 503: Transient, 429: Transient, 400: MalformedResponse} {
			kind, failed := ClassifyStatus(code)
			So(failed, ShouldBeTrue)
			So(kind, ShouldEqual, want)
		}

		_, failed := ClassifyStatus(206)
		So(failed, ShouldBeFalse)
	})

	Convey("AsError", t, func() {
		So(KindOf(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)), ShouldEqual, Transient)
		So(KindOf(errors.New("boom")), ShouldEqual, MalformedResponse)
		So(KindOf(fail(NotFound, "gone", nil)), ShouldEqual, NotFound)
		So(AsError(nil), ShouldBeNil)
	})
}

const toolJSON = `{
  "id": "dQw4w9WgXcQ", "title": "Never", "thumbnail": "https://i.ytimg.com/vi/x/hq.jpg",
  "url": "https://media.example/top", "height": 360, "ext": "mp4",
  "formats": [
    {"url": "https://media.example/360", "ext": "mp4", "protocol": "https", "height": 360, "acodec": "mp4a", "vcodec": "avc1"},
    {"url": "https://media.example/720", "ext": "mp4", "protocol": "https", "height": 720, "acodec": "mp4a", "vcodec": "avc1", "http_headers": {"Referer": "r"}},
    {"url": "https://media.example/1080v", "ext": "mp4", "protocol": "https", "height": 1080, "acodec": "none", "vcodec": "avc1"},
    {"url": "https://media.example/hls", "ext": "mp4", "protocol": "m3u8_native", "height": 720, "acodec": "mp4a", "vcodec": "avc1"}
  ]
}`

func TestNativeTool(t *testing.T) {
	Convey("Given a native tool with a fake runner", t, func() {
		filesystem.SetMemMapFs()

		var (
			gotArgs    []string
			cookieText string
			stdout     = []byte(toolJSON)
			stderr     []byte
			runErr     error
		)

		tool := &NativeTool{
			Path:       "yt-dlp",
			Format:     "best[ext=mp4]",
			Timeout:    time.Second,
			Target:     720,
			Classifier: classifier,
			TempDir:    "/tmp/offtube",
			Run: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
				gotArgs = args
				for i, a := range args {
					if a == "--cookies" {
						data, _ := filesystem.API().ReadFile(args[i+1])
						cookieText = string(data)
					}
				}
				return stdout, stderr, runErr
			},
		}

		Convey("Successful output is resolved through the quality selector", func() {
			media, err := tool.Extract(context.Background(), Input{URL: "https://youtu.be/dQw4w9WgXcQ", SourceID: "dQw4w9WgXcQ"})
			So(err, ShouldBeNil)
			So(media.MediaURL, ShouldEqual, "https://media.example/720")
			So(media.Quality, ShouldEqual, 720)
			So(media.Title, ShouldEqual, "Never")
			So(media.ThumbnailURL.MustGet(), ShouldEqual, "https://i.ytimg.com/vi/x/hq.jpg")
			So(media.Headers["Referer"], ShouldEqual, "r")
			So(media.SourceID, ShouldEqual, "dQw4w9WgXcQ")
			So(gotArgs[len(gotArgs)-1], ShouldEqual, "https://youtu.be/dQw4w9WgXcQ")
			So(gotArgs, ShouldNotContain, "--cookies")
		})

		Convey("Credentials are handed over in a temp cookie file that is removed afterwards", func() {
			_, err := tool.Extract(context.Background(), Input{URL: "u", Credentials: mo.Some(session)})
			So(err, ShouldBeNil)
			So(cookieText, ShouldContainSubstring, "SID\ts3cr3t")

			entries, _ := filesystem.API().ReadDir("/tmp/offtube")
			So(entries, ShouldBeEmpty)
		})

		Convey("An auth failure on stderr is classified", func() {
			stdout, stderr, runErr = nil, []byte("WARNING: x\nERROR: Sign in to confirm you're not a bot. Use --cookies"), &exec.ExitError{}

			_, err := tool.Extract(context.Background(), Input{URL: "u", Credentials: mo.Some(session)})
			So(KindOf(err), ShouldEqual, AuthRequired)
			So(err.Error(), ShouldContainSubstring, "Sign in")

			entries, _ := filesystem.API().ReadDir("/tmp/offtube")
			So(entries, ShouldBeEmpty)
		})

		Convey("Unparseable output is malformed", func() {
			stdout = []byte("not json")
			_, err := tool.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, MalformedResponse)
		})

		Convey("Unrecognised stderr is not retried in place", func() {
			stdout, stderr, runErr = nil, []byte("ERROR: Unsupported URL: u"), &exec.ExitError{}

			_, err := tool.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, MalformedResponse)
		})

		Convey("A transient marker on stderr is transient", func() {
			stdout, stderr, runErr = nil, []byte("ERROR: unable to download webpage: Connection reset by peer"), &exec.ExitError{}

			_, err := tool.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, Transient)
		})

		Convey("A run that outlives the timeout is transient", func() {
			tool.Timeout = 10 * time.Millisecond
			tool.Run = func(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
				<-ctx.Done()
				return nil, nil, ctx.Err()
			}

			_, err := tool.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, Transient)
		})

		Convey("With a client the resolved url is probed", func() {
			status := http.StatusPartialContent
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			stdout = []byte(`{"id":"abc","title":"Locked","url":"` + srv.URL + `/v.mp4","height":720}`)
			tool.Client = srv.Client()

			media, err := tool.Extract(context.Background(), Input{URL: "u"})
			So(err, ShouldBeNil)
			So(media.Title, ShouldEqual, "Locked")

			status = http.StatusForbidden
			_, err = tool.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, AuthRequired)

			lead, ok := AsError(err).Lead.Get()
			So(ok, ShouldBeTrue)
			So(lead.Strategy, ShouldEqual, "native")
			So(lead.MediaURL, ShouldEqual, srv.URL+"/v.mp4")
		})

		Convey("Without formats the top level url is used", func() {
			stdout = []byte(`{"id":"abc","url":"https://media.example/only","height":480}`)
			media, err := tool.Extract(context.Background(), Input{URL: "u"})
			So(err, ShouldBeNil)
			So(media.MediaURL, ShouldEqual, "https://media.example/only")
			So(media.Title, ShouldEqual, "abc")
			So(media.ThumbnailURL.IsAbsent(), ShouldBeTrue)
		})
	})
}

func TestMates(t *testing.T) {
	Convey("Given a mates-style service", t, func() {
		var (
			analyze = `{"status":"ok","vid":"dQw4w9WgXcQ","title":"Never","links":{"mp4":{
				"a":{"f":"mp4","q":"1080p","k":"tok1080"},
				"b":{"f":"mp4","q":"720p","k":"tok720"},
				"c":{"f":"mp4","q":"360p","k":"tok360"},
				"broken": 5},"mp3":{"x":{"f":"mp3","q":"128kbps","k":"tokmp3"}}}}`
			convert   = `{"status":"ok","c_status":"CONVERTED","dlink":"{base}/media/720.mp4"}`
			mediaCode = http.StatusPartialContent
			gotKey    string
		)

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/mates/analyzeV2/ajax", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(analyze))
		})
		mux.HandleFunc("/mates/convertV2/index", func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			gotKey = r.PostForm.Get("k")
			_, _ = w.Write([]byte(strings.ReplaceAll(convert, "{base}", srv.URL)))
		})
		mux.HandleFunc("/media/720.mp4", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(mediaCode)
		})

		strategy := &ScrapeService{Endpoint: &Mates{BaseURL: srv.URL}, Client: srv.Client(), Target: 720, Probe: true}

		Convey("The target quality is converted and probed", func() {
			media, err := strategy.Extract(context.Background(), Input{URL: "https://youtu.be/dQw4w9WgXcQ", SourceID: "dQw4w9WgXcQ"})
			So(err, ShouldBeNil)
			So(gotKey, ShouldEqual, "tok720")
			So(media.MediaURL, ShouldEqual, srv.URL+"/media/720.mp4")
			So(media.Quality, ShouldEqual, 720)
			So(media.Title, ShouldEqual, "Never")
			So(media.ThumbnailURL.MustGet(), ShouldContainSubstring, "dQw4w9WgXcQ")
			So(strategy.Name(), ShouldEqual, "scrape:mates")
		})

		Convey("A forbidden media url leaves a lead", func() {
			mediaCode = http.StatusForbidden

			_, err := strategy.Extract(context.Background(), Input{URL: "u"})
			e := AsError(err)
			So(e.Kind, ShouldEqual, AuthRequired)
			So(e.Lead.MustGet().MediaURL, ShouldEqual, srv.URL+"/media/720.mp4")
		})

		Convey("Missing fields fall through as malformed", func() {
			analyze = `{"status":"ok","vid":"x"}`
			_, err := strategy.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, MalformedResponse)
		})

		Convey("A non-ok status is not found", func() {
			analyze = `{"status":"error","mess":"Please check the url"}`
			_, err := strategy.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, NotFound)
			So(err.Error(), ShouldContainSubstring, "check the url")
		})

		Convey("A pending conversion is transient", func() {
			convert = `{"status":"ok","c_status":"CONVERTING"}`
			_, err := strategy.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, Transient)
		})

		Convey("Non-json replies are malformed", func() {
			analyze = `<html>captcha</html>`
			_, err := strategy.Extract(context.Background(), Input{URL: "u"})
			So(KindOf(err), ShouldEqual, MalformedResponse)
		})
	})
}

func TestSavefrom(t *testing.T) {
	Convey("Given a savefrom-style result page", t, func() {
		page := `<html><body><div class="media-result">
			<div class="info-box"><img class="thumb" src="/thumbs/x.jpg"><div class="title">Never Gonna</div></div>
			<div class="link-box">
				<a class="link link-download" href="https://cdn.example/v480.mp4?sig=1" data-quality="480" data-type="mp4">MP4 480p</a>
				<a class="link link-download no-audio" href="https://cdn.example/v1080.mp4" data-quality="1080" data-type="mp4">MP4 1080p</a>
				<a class="link link-download" data-convert="tok720" data-quality="720p" data-type="mp4">MP4 720p</a>
				<a class="link link-download" href="https://cdn.example/v720.webm" data-quality="720" data-type="webm">WEBM 720p</a>
			</div></div></body></html>`

		mux := http.NewServeMux()
		mux.HandleFunc("/savefrom.php", func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.PostForm.Get("sf_url") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(page))
		})
		mux.HandleFunc("/convert", func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			_, _ = fmt.Fprintf(w, `{"url":"/dl/%s.mp4"}`, r.PostForm.Get("token"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		strategy := &ScrapeService{Endpoint: &Savefrom{BaseURL: srv.URL}, Client: srv.Client(), Target: 720}

		Convey("The mp4 720 offer is converted through its token", func() {
			media, err := strategy.Extract(context.Background(), Input{URL: "https://youtu.be/x"})
			So(err, ShouldBeNil)
			So(media.MediaURL, ShouldEqual, srv.URL+"/dl/tok720.mp4")
			So(media.Title, ShouldEqual, "Never Gonna")
			So(media.ThumbnailURL.MustGet(), ShouldEqual, srv.URL+"/thumbs/x.jpg")
		})

		Convey("Direct links need no conversion", func() {
			strategy.Target = 480
			media, err := strategy.Extract(context.Background(), Input{URL: "https://youtu.be/x"})
			So(err, ShouldBeNil)
			So(media.MediaURL, ShouldEqual, "https://cdn.example/v480.mp4?sig=1")
		})

		Convey("An error banner is not found", func() {
			page = `<div class="result-failure">Video not found</div>`
			_, err := strategy.Extract(context.Background(), Input{URL: "https://youtu.be/x"})
			So(KindOf(err), ShouldEqual, NotFound)
		})

		Convey("A page without links is malformed", func() {
			page = `<html><body>maintenance</body></html>`
			_, err := strategy.Extract(context.Background(), Input{URL: "https://youtu.be/x"})
			So(KindOf(err), ShouldEqual, MalformedResponse)
		})
	})

	Convey("parseRank", t, func() {
		So(parseRank("720p"), ShouldEqual, 720)
		So(parseRank("1080p60"), ShouldEqual, 1080)
		So(parseRank("MP4 360p"), ShouldEqual, 360)
		So(parseRank("HD"), ShouldEqual, 720)
		So(parseRank("auto"), ShouldEqual, 0)
	})
}

func TestAuthenticatedReplay(t *testing.T) {
	Convey("Given a media host that requires the session cookie", t, func(c C) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Cookie"), "SID=s3cr3t") {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			c.So(r.Header.Get("Range"), ShouldEqual, "bytes=0-0")
			w.WriteHeader(http.StatusPartialContent)
		}))
		defer srv.Close()

		replay := &AuthenticatedReplay{Client: srv.Client()}
		bundle := credential.Bundle{Cookies: []credential.Cookie{{Domain: "127.0.0.1", Path: "/", Name: "SID", Value: "s3cr3t"}}}
		lead := Lead{Strategy: "scrape:mates", MediaURL: srv.URL + "/v.mp4", Title: "Never", Quality: 720}

		Convey("A lead is replayed with cookies and returned with its headers", func() {
			media, err := replay.Extract(context.Background(), Input{Credentials: mo.Some(bundle), Leads: []Lead{lead}, SourceID: "id"})
			So(err, ShouldBeNil)
			So(media.MediaURL, ShouldEqual, lead.MediaURL)
			So(media.Headers["Cookie"], ShouldEqual, "SID=s3cr3t")
			So(media.Strategy, ShouldEqual, "replay")
		})

		Convey("Wrong cookies are an auth failure", func() {
			bundle.Cookies[0].Value = "stale"
			_, err := replay.Extract(context.Background(), Input{Credentials: mo.Some(bundle), Leads: []Lead{lead}})
			So(KindOf(err), ShouldEqual, AuthRequired)
		})

		Convey("No cookies asks for authentication", func() {
			_, err := replay.Extract(context.Background(), Input{Leads: []Lead{lead}})
			So(KindOf(err), ShouldEqual, AuthRequired)
		})

		Convey("No leads is not found", func() {
			_, err := replay.Extract(context.Background(), Input{Credentials: mo.Some(bundle)})
			So(KindOf(err), ShouldEqual, NotFound)
		})
	})
}
