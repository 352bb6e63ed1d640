package source

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Request is a validated download request.
type Request struct {
	URL      string
	SourceID string
}

// ValidationError reports a malformed or disallowed source URL.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid source url %q: %s", e.URL, e.Reason)
}

// NewRequest validates rawURL against allowedHosts and derives its source id.
// Host matching is case-insensitive and exact; a leading "www." is not implied.
func NewRequest(rawURL string, allowedHosts []string) (Request, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Request{}, &ValidationError{URL: rawURL, Reason: "url is required"}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, &ValidationError{URL: rawURL, Reason: "malformed url"}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return Request{}, &ValidationError{URL: rawURL, Reason: "scheme must be http or https"}
	}

	host := strings.ToLower(u.Hostname())
	if !lo.ContainsBy(allowedHosts, func(h string) bool { return strings.EqualFold(h, host) }) {
		return Request{}, &ValidationError{URL: rawURL, Reason: fmt.Sprintf("host %q is not allowed", host)}
	}

	return Request{URL: u.String(), SourceID: DeriveID(u)}, nil
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// DeriveID returns a stable identifier for u: the platform video id when one
// can be recognised, otherwise a hash of the normalized URL.
func DeriveID(u *url.URL) string {
	if id := videoID(u); id != "" {
		return id
	}

	normalized := strings.ToLower(u.Hostname()) + u.EscapedPath() + "?" + u.Query().Encode()
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

func videoID(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var candidate string
	switch {
	case host == "youtu.be":
		candidate = segments[0]
	case u.Query().Has("v"):
		candidate = u.Query().Get("v")
	case len(segments) >= 2 && lo.Contains([]string{"shorts", "embed", "live", "v"}, segments[0]):
		candidate = segments[1]
	}

	if videoIDPattern.MatchString(candidate) {
		return candidate
	}
	return ""
}
