package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/network"
	"github.com/offtube/offtube/quality"
	"github.com/offtube/offtube/source"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Runner executes name with args and returns its captured output.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs a real subprocess. The process is killed when ctx ends.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// NativeTool resolves media with the external downloader tool.
type NativeTool struct {
	Path       string
	Format     string
	Timeout    time.Duration
	Target     int
	Classifier Classifier
	// TempDir receives the transient cookie file.
	TempDir string
	Run     Runner
	// Client, when set, probes the resolved url before it is handed on.
	Client *http.Client
}

func (n *NativeTool) Name() string {
	return "native"
}

func (n *NativeTool) runner() Runner {
	if n.Run == nil {
		return ExecRunner
	}
	return n.Run
}

// Extract runs the tool in metadata mode and picks a stream from the formats it reports.
func (n *NativeTool) Extract(ctx context.Context, in Input) (*source.ResolvedMedia, error) {
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--format", n.Format,
		"--user-agent", network.RandomUserAgent(),
	}

	if b, ok := in.Credentials.Get(); ok && !b.Empty() {
		path, cleanup, err := n.writeCookies(b)
		if err != nil {
			return nil, fail(Transient, "write cookie file", err)
		}
		defer cleanup()

		args = append(args, "--cookies", path)
	}

	args = append(args, "--", in.URL)

	stdout, stderr, err := n.runner()(ctx, n.Path, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fail(Transient, fmt.Sprintf("%s did not finish", n.Path), ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && len(stderr) == 0 {
			return nil, fail(NotFound, fmt.Sprintf("cannot run %s", n.Path), err)
		}

		diag := lastLine(stderr)
		return nil, fail(n.Classifier.Classify(string(stderr)), diag, err)
	}

	var info toolInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, fail(MalformedResponse, "tool output is not json", err)
	}

	media, err := info.resolve(n.Target)
	if err != nil {
		return nil, err
	}

	media.SourceID = in.SourceID
	media.Strategy = n.Name()

	if n.Client == nil {
		return media, nil
	}

	return n.probe(ctx, media)
}

// probe checks the resolved url is fetchable. A url that needs a session
// is left as a lead for the replay strategy.
func (n *NativeTool) probe(ctx context.Context, media *source.ResolvedMedia) (*source.ResolvedMedia, error) {
	code, err := Probe(ctx, n.Client, media.MediaURL, media.Headers)
	if err != nil {
		return nil, AsError(err)
	}

	kind, failed := ClassifyStatus(code)
	if !failed {
		return media, nil
	}

	e := fail(kind, "resolved url answered "+strconv.Itoa(code), nil)
	if kind == AuthRequired {
		e.Lead = mo.Some(Lead{
			Strategy:     n.Name(),
			MediaURL:     media.MediaURL,
			Title:        media.Title,
			ThumbnailURL: media.ThumbnailURL,
			Quality:      media.Quality,
		})
	}
	return nil, e
}

// writeCookies stores the bundle in a private temp file and returns a cleanup func that removes it.
func (n *NativeTool) writeCookies(b credential.Bundle) (string, func(), error) {
	dir := n.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	fs := filesystem.API()
	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return "", nil, err
	}

	f, err := fs.TempFile(dir, "cookies-*.txt")
	if err != nil {
		return "", nil, err
	}

	cleanup := func() {
		if err := fs.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("removing temp cookie file")
		}
	}

	if _, err := f.Write(credential.Marshal(b.Cookies)); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}

	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}

	return f.Name(), cleanup, nil
}

// Version reports the installed tool version.
func (n *NativeTool) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := n.runner()(ctx, n.Path, "--version")
	if err != nil {
		return "", fmt.Errorf("%s --version: %w: %s", n.Path, err, lastLine(stderr))
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Update asks the tool to update itself.
func (n *NativeTool) Update(ctx context.Context) error {
	stdout, stderr, err := n.runner()(ctx, n.Path, "-U")
	if err != nil {
		return fmt.Errorf("%s -U: %w: %s", n.Path, err, lastLine(stderr))
	}

	log.Info(lastLine(stdout))
	return nil
}

type toolFormat struct {
	URL         string            `json:"url"`
	Ext         string            `json:"ext"`
	Protocol    string            `json:"protocol"`
	Height      int               `json:"height"`
	Acodec      string            `json:"acodec"`
	Vcodec      string            `json:"vcodec"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

type toolInfo struct {
	toolFormat
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Duration  float64      `json:"duration"`
	Formats   []toolFormat `json:"formats"`
}

// resolve picks a single-file stream, preferring ones that carry audio.
func (info *toolInfo) resolve(target int) (*source.ResolvedMedia, error) {
	progressive := lo.Filter(info.Formats, func(f toolFormat, _ int) bool {
		return f.URL != "" &&
			(f.Protocol == "" || f.Protocol == "https" || f.Protocol == "http") &&
			f.Vcodec != "none"
	})

	withAudio := lo.Filter(progressive, func(f toolFormat, _ int) bool {
		return f.Acodec != "none" && f.Acodec != ""
	})
	if len(withAudio) > 0 {
		progressive = withAudio
	}

	candidates := lo.Map(progressive, func(f toolFormat, _ int) source.StreamCandidate {
		return source.StreamCandidate{
			Container:   source.ContainerOf(f.Ext),
			QualityRank: f.Height,
			HasAudio:    f.Acodec != "none" && f.Acodec != "",
			URL:         f.URL,
		}
	})

	chosen := info.toolFormat
	if i := quality.SelectIndex(candidates, target); i >= 0 {
		chosen = progressive[i]
	}

	if chosen.URL == "" {
		return nil, fail(MalformedResponse, "tool reported no downloadable stream", nil)
	}

	if info.Title == "" {
		info.Title = info.ID
	}

	return &source.ResolvedMedia{
		Title:        info.Title,
		ThumbnailURL: mo.EmptyableToOption(info.Thumbnail),
		MediaURL:     chosen.URL,
		Quality:      chosen.Height,
		Headers:      chosen.HTTPHeaders,
	}, nil
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
