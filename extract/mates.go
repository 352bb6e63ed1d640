package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/offtube/offtube/network"
	"github.com/offtube/offtube/source"
	"github.com/samber/mo"
)

// Mates talks to the analyze/convert JSON API used by y2mate and its clones.
type Mates struct {
	BaseURL string
}

func (m *Mates) Name() string {
	return "mates"
}

func (m *Mates) Analyze(ctx context.Context, client *http.Client, sourceURL string) mo.Result[Analysis] {
	body, err := postForm(ctx, client, m.BaseURL+"/mates/analyzeV2/ajax", url.Values{
		"k_query": {sourceURL},
		"k_page":  {"home"},
		"hl":      {"en"},
		"q_auto":  {"0"},
	})
	if err != nil {
		return mo.Err[Analysis](err)
	}

	if status := field(body, "status").OrElse(""); status != "ok" {
		detail := field(body, "mess", "message", "error").OrElse("status " + strconv.Quote(status))
		return mo.Err[Analysis](fail(NotFound, detail, nil))
	}

	vid, ok := field(body, "vid", "videoId", "id").Get()
	if !ok {
		return mo.Err[Analysis](fail(MalformedResponse, "analyze response has no video id", nil))
	}

	mp4, ok := object(body, "links").FlatMap(func(links map[string]any) mo.Option[map[string]any] {
		return object(links, "mp4")
	}).Get()
	if !ok {
		return mo.Err[Analysis](fail(MalformedResponse, "analyze response has no mp4 links", nil))
	}

	// map iteration order is random; keep offers stable
	keys := make([]string, 0, len(mp4))
	for k := range mp4 {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var offers []Offer
	for _, k := range keys {
		entry, ok := mp4[k].(map[string]any)
		if !ok {
			continue
		}

		token, ok := field(entry, "k", "key", "token").Get()
		if !ok {
			continue
		}

		label := field(entry, "q", "q_text", "quality").OrElse(k)
		text := strings.ToLower(field(entry, "q_text").OrElse(""))
		offers = append(offers, Offer{
			StreamCandidate: source.StreamCandidate{
				Container:   source.ContainerOf(field(entry, "f", "format").OrElse("mp4")),
				QualityRank: parseRank(label),
				HasAudio:    !strings.Contains(text, "no audio") && !strings.Contains(text, "video only"),
			},
			Token: token,
		})
	}

	thumb := field(body, "thumbnail", "thumb")
	if thumb.IsAbsent() {
		thumb = mo.Some(fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", vid))
	}

	return mo.Ok(Analysis{
		Title:        field(body, "title").OrElse(vid),
		ThumbnailURL: thumb,
		Offers:       offers,
		State:        map[string]string{"vid": vid},
	})
}

func (m *Mates) Convert(ctx context.Context, client *http.Client, analysis Analysis, offer Offer) mo.Result[string] {
	body, err := postForm(ctx, client, m.BaseURL+"/mates/convertV2/index", url.Values{
		"vid": {analysis.State["vid"]},
		"k":   {offer.Token},
	})
	if err != nil {
		return mo.Err[string](err)
	}

	if status := field(body, "status").OrElse(""); status != "ok" {
		return mo.Err[string](fail(MalformedResponse, "convert status "+strconv.Quote(status), nil))
	}

	if cs := field(body, "c_status").OrElse("CONVERTED"); !strings.EqualFold(cs, "CONVERTED") {
		return mo.Err[string](fail(Transient, "conversion not ready: "+cs, nil))
	}

	link, ok := field(body, "dlink", "url", "download_url").Get()
	if !ok {
		return mo.Err[string](fail(MalformedResponse, "convert response has no link", nil))
	}

	return mo.Ok(link)
}

// postForm submits form to endpoint and decodes a JSON object reply.
func postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fail(MalformedResponse, "build request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", network.RandomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, AsError(err)
	}
	defer resp.Body.Close()

	if kind, failed := ClassifyStatus(resp.StatusCode); failed {
		return nil, fail(kind, fmt.Sprintf("%s answered %d", endpoint, resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, AsError(err)
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fail(MalformedResponse, "response is not a json object", err)
	}

	return body, nil
}
