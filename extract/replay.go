package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/offtube/offtube/source"
)

// AuthenticatedReplay fetches a previously resolved media URL with the
// session cookies attached. It only works on leads left by other strategies.
type AuthenticatedReplay struct {
	Client *http.Client
}

func (r *AuthenticatedReplay) Name() string {
	return "replay"
}

func (r *AuthenticatedReplay) Extract(ctx context.Context, in Input) (*source.ResolvedMedia, error) {
	if len(in.Leads) == 0 {
		return nil, fail(NotFound, "no previously resolved media url", nil)
	}

	bundle, ok := in.Credentials.Get()
	if !ok || bundle.Empty() {
		return nil, fail(AuthRequired, "no session cookies to replay", nil)
	}

	var last *Error
	for i := len(in.Leads) - 1; i >= 0; i-- {
		lead := in.Leads[i]

		u, err := url.Parse(lead.MediaURL)
		if err != nil {
			last = fail(MalformedResponse, fmt.Sprintf("invalid lead url %q", lead.MediaURL), err)
			continue
		}

		headers := map[string]string{}
		if cookie := bundle.HeaderFor(u.Hostname()); cookie != "" {
			headers["Cookie"] = cookie
		}

		code, err := Probe(ctx, r.Client, lead.MediaURL, headers)
		if err != nil {
			last = AsError(err)
			continue
		}

		if kind, failed := ClassifyStatus(code); failed {
			last = fail(kind, fmt.Sprintf("replay of %s lead answered %d", lead.Strategy, code), nil)
			continue
		}

		return &source.ResolvedMedia{
			SourceID:     in.SourceID,
			Title:        lead.Title,
			ThumbnailURL: lead.ThumbnailURL,
			MediaURL:     lead.MediaURL,
			Quality:      lead.Quality,
			Headers:      headers,
			Strategy:     r.Name(),
		}, nil
	}

	return nil, last
}
