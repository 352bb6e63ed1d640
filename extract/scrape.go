package extract

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/offtube/offtube/quality"
	"github.com/offtube/offtube/source"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Offer is a stream candidate plus the endpoint-specific token needed to convert it.
type Offer struct {
	source.StreamCandidate
	Token string
}

// Analysis is what a conversion service reports about a source.
type Analysis struct {
	Title        string
	ThumbnailURL mo.Option[string]
	Offers       []Offer
	// State carries endpoint-specific values from analyze to convert.
	State map[string]string
}

// Endpoint adapts one third-party conversion service. Both calls return a
// tagged result: responses are untrusted and a missing field is an ordinary
// error branch, never a panic.
type Endpoint interface {
	Name() string
	Analyze(ctx context.Context, client *http.Client, sourceURL string) mo.Result[Analysis]
	Convert(ctx context.Context, client *http.Client, analysis Analysis, offer Offer) mo.Result[string]
}

// ScrapeService resolves media through a conversion Endpoint.
type ScrapeService struct {
	Endpoint Endpoint
	Client   *http.Client
	Target   int
	// Probe verifies the converted URL with a one byte request.
	Probe bool
}

func (s *ScrapeService) Name() string {
	return "scrape:" + s.Endpoint.Name()
}

func (s *ScrapeService) Extract(ctx context.Context, in Input) (*source.ResolvedMedia, error) {
	analysis, err := s.Endpoint.Analyze(ctx, s.Client, in.URL).Get()
	if err != nil {
		return nil, AsError(err)
	}

	candidates := lo.Map(analysis.Offers, func(o Offer, _ int) source.StreamCandidate {
		return o.StreamCandidate
	})

	i := quality.SelectIndex(candidates, s.Target)
	if i < 0 {
		return nil, fail(NotFound, "service offered no video streams", nil)
	}
	offer := analysis.Offers[i]

	mediaURL, err := s.Endpoint.Convert(ctx, s.Client, analysis, offer).Get()
	if err != nil {
		return nil, AsError(err)
	}

	media := &source.ResolvedMedia{
		SourceID:     in.SourceID,
		Title:        analysis.Title,
		ThumbnailURL: analysis.ThumbnailURL,
		MediaURL:     mediaURL,
		Quality:      offer.QualityRank,
		Strategy:     s.Name(),
	}

	if !s.Probe {
		return media, nil
	}

	code, err := Probe(ctx, s.Client, mediaURL, nil)
	if err != nil {
		return nil, AsError(err)
	}

	if kind, failed := ClassifyStatus(code); failed {
		e := fail(kind, "converted url answered "+strconv.Itoa(code), nil)
		if kind == AuthRequired {
			e.Lead = mo.Some(Lead{
				Strategy:     s.Name(),
				MediaURL:     mediaURL,
				Title:        media.Title,
				ThumbnailURL: media.ThumbnailURL,
				Quality:      media.Quality,
			})
		}
		return nil, e
	}

	return media, nil
}

var rankPattern = regexp.MustCompile(`(\d{3,4})\s*p?`)

// parseRank extracts a vertical resolution from labels like "720p", "1080p60" or "HD 720".
func parseRank(label string) int {
	m := rankPattern.FindStringSubmatch(label)
	if m == nil {
		switch strings.ToUpper(strings.TrimSpace(label)) {
		case "FHD", "FULLHD":
			return 1080
		case "HD":
			return 720
		case "SD":
			return 480
		}
		return 0
	}

	n, _ := strconv.Atoi(m[1])
	return n
}

// field returns the first non-empty string stored under any of keys.
// Numbers are rendered in decimal.
func field(m map[string]any, keys ...string) mo.Option[string] {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return mo.Some(v)
			}
		case float64:
			return mo.Some(strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			return mo.Some(strconv.FormatBool(v))
		}
	}
	return mo.None[string]()
}

// object returns the nested JSON object stored under key.
func object(m map[string]any, key string) mo.Option[map[string]any] {
	if v, ok := m[key].(map[string]any); ok {
		return mo.Some(v)
	}
	return mo.None[map[string]any]()
}
