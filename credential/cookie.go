// Package credential holds the authentication cookie bundle shared by every extraction strategy,
// together with its on-disk cookie file format.
package credential

import (
	"net/http"
	"strings"
	"time"
)

// Cookie is one session cookie in the shape the cookie file stores it.
type Cookie struct {
	Domain   string
	HTTPOnly bool
	Path     string
	Secure   bool
	// Expires is seconds since the epoch; 0 marks a session cookie.
	Expires int64
	Name    string
	Value   string
}

// HTTP converts the cookie for use with net/http.
func (c Cookie) HTTP() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}

	if c.Expires > 0 {
		hc.Expires = time.Unix(c.Expires, 0)
	}

	return hc
}

// Matches reports whether the cookie would be sent to host.
func (c Cookie) Matches(host string) bool {
	domain := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Bundle is a snapshot of session cookies plus health metadata.
type Bundle struct {
	Cookies      []Cookie
	CapturedAt   time.Time
	FailureCount int
}

// Age returns how long ago the bundle was captured.
func (b Bundle) Age(now time.Time) time.Duration {
	return now.Sub(b.CapturedAt)
}

// Empty reports whether the bundle carries no cookies.
func (b Bundle) Empty() bool {
	return len(b.Cookies) == 0
}

// HeaderFor renders the Cookie request header for host.
func (b Bundle) HeaderFor(host string) string {
	var pairs []string
	for _, c := range b.Cookies {
		if c.Matches(host) {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
	}
	return strings.Join(pairs, "; ")
}

func (b Bundle) clone() Bundle {
	b.Cookies = append([]Cookie(nil), b.Cookies...)
	return b
}
