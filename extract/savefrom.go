package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/offtube/offtube/network"
	"github.com/offtube/offtube/source"
	"github.com/samber/mo"
)

// Savefrom scrapes the HTML result page of savefrom-style services.
// Download anchors either link to the media directly or carry a
// data-convert token that must be exchanged for the final URL.
type Savefrom struct {
	BaseURL string
}

func (s *Savefrom) Name() string {
	return "savefrom"
}

func (s *Savefrom) Analyze(ctx context.Context, client *http.Client, sourceURL string) mo.Result[Analysis] {
	form := url.Values{"sf_url": {sourceURL}, "lang": {"en"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/savefrom.php", strings.NewReader(form.Encode()))
	if err != nil {
		return mo.Err[Analysis](fail(MalformedResponse, "build request", err))
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", network.RandomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return mo.Err[Analysis](AsError(err))
	}
	defer resp.Body.Close()

	if kind, failed := ClassifyStatus(resp.StatusCode); failed {
		return mo.Err[Analysis](fail(kind, fmt.Sprintf("analyze answered %d", resp.StatusCode), nil))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return mo.Err[Analysis](fail(MalformedResponse, "analyze page is not html", err))
	}

	if msg := strings.TrimSpace(doc.Find(".result-failure, .error-message").First().Text()); msg != "" {
		return mo.Err[Analysis](fail(NotFound, msg, nil))
	}

	var offers []Offer
	doc.Find("a.link-download, a[data-quality]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		token, hasToken := a.Attr("data-convert")
		if href == "" && !hasToken {
			return
		}

		label := a.AttrOr("data-quality", a.Text())
		kind := a.AttrOr("data-type", path.Ext(strings.SplitN(href, "?", 2)[0]))
		text := strings.ToLower(a.Text() + " " + a.AttrOr("title", ""))

		if hasToken {
			href = ""
		} else {
			token = s.absolute(href)
		}

		offers = append(offers, Offer{
			StreamCandidate: source.StreamCandidate{
				Container:   source.ContainerOf(strings.ToLower(kind)),
				QualityRank: parseRank(label),
				HasAudio:    !a.HasClass("no-audio") && !strings.Contains(text, "without audio"),
				URL:         href,
			},
			Token: token,
		})
	})

	if len(offers) == 0 {
		return mo.Err[Analysis](fail(MalformedResponse, "no download links on result page", nil))
	}

	title := firstText(doc, ".info-box .title", ".media-result .title", "title")
	thumb := doc.Find("img.thumb, .info-box img").First().AttrOr("src", "")
	if thumb == "" {
		thumb = doc.Find(`meta[property="og:image"]`).AttrOr("content", "")
	}

	return mo.Ok(Analysis{
		Title:        title,
		ThumbnailURL: mo.EmptyableToOption(s.absolute(thumb)),
		Offers:       offers,
	})
}

func (s *Savefrom) Convert(ctx context.Context, client *http.Client, _ Analysis, offer Offer) mo.Result[string] {
	if offer.URL != "" {
		return mo.Ok(offer.Token)
	}

	body, err := postForm(ctx, client, s.BaseURL+"/convert", url.Values{"token": {offer.Token}})
	if err != nil {
		return mo.Err[string](err)
	}

	link, ok := field(body, "url", "link", "dlink").Get()
	if !ok {
		return mo.Err[string](fail(MalformedResponse, "convert response has no link", nil))
	}

	return mo.Ok(s.absolute(link))
}

// absolute resolves ref against the service's base URL.
func (s *Savefrom) absolute(ref string) string {
	if ref == "" {
		return ""
	}

	base, err := url.Parse(s.BaseURL + "/")
	if err != nil {
		return ref
	}

	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}
