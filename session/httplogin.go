package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/offtube/offtube/auth"
	"github.com/offtube/offtube/network"
)

// HTTPLogin replays the identity provider's form login without a browser.
type HTTPLogin struct {
	LoginURL         string
	FormURL          string
	TargetURL        string
	ChallengeMarkers []string
	Timeout          time.Duration
	// Transport defaults to a Chrome-fingerprinted transport.
	Transport http.RoundTripper
}

// Login posts the credentials and returns every cookie the exchange set.
func (h *HTTPLogin) Login(ctx context.Context, id auth.Identity, userAgent string) ([]RawCookie, error) {
	next := h.Transport
	if next == nil {
		next = network.NewChromeTransport()
	}

	rec := &recorder{next: next, seen: make(map[string]int)}
	client := &http.Client{
		Jar:       network.NewJar(),
		Transport: rec,
		Timeout:   h.Timeout,
	}

	if _, err := h.do(ctx, client, http.MethodGet, h.LoginURL, nil, userAgent); err != nil {
		return nil, err
	}

	form := url.Values{
		"identifier": {id.Email},
		"password":   {id.Password},
		"continue":   {h.TargetURL},
	}

	body, err := h.do(ctx, client, http.MethodPost, h.FormURL, form, userAgent)
	if err != nil {
		return nil, err
	}

	if containsMarker(body, h.ChallengeMarkers) {
		return nil, errChallenge
	}

	if _, err := h.do(ctx, client, http.MethodGet, h.TargetURL, nil, userAgent); err != nil {
		return nil, err
	}

	return rec.cookies(), nil
}

func (h *HTTPLogin) do(ctx context.Context, client *http.Client, method, target string, form url.Values, userAgent string) (string, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s %s: unexpected status %d", method, target, resp.StatusCode)
	}

	return string(data), nil
}

// recorder captures Set-Cookie attributes, which http.CookieJar does not expose.
type recorder struct {
	next http.RoundTripper

	mu   sync.Mutex
	seen map[string]int
	all  []RawCookie
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range resp.Cookies() {
		domain := c.Domain
		if domain == "" {
			domain = req.URL.Hostname()
		}

		var expires float64
		switch {
		case c.MaxAge > 0:
			expires = float64(time.Now().Add(time.Duration(c.MaxAge) * time.Second).Unix())
		case !c.Expires.IsZero():
			expires = float64(c.Expires.Unix())
		}

		raw := RawCookie{
			Domain:   domain,
			Path:     c.Path,
			Name:     c.Name,
			Value:    c.Value,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			Expires:  expires,
		}

		id := domain + "\x00" + c.Path + "\x00" + c.Name
		if i, ok := r.seen[id]; ok {
			r.all[i] = raw
			continue
		}
		r.seen[id] = len(r.all)
		r.all = append(r.all, raw)
	}

	return resp, nil
}

func (r *recorder) cookies() []RawCookie {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RawCookie(nil), r.all...)
}
