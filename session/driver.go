// Package session mints fresh credential bundles by logging in to the identity provider,
// first through a scripted browser and, when that hits a verification wall, through plain HTTP.
package session

import (
	"context"

	"github.com/offtube/offtube/auth"
)

// RawCookie is a cookie as reported by a browser or an HTTP response, before normalization.
type RawCookie struct {
	Domain   string
	Path     string
	Name     string
	Value    string
	Secure   bool
	HTTPOnly bool
	// Expires is seconds since the epoch; zero or negative marks a session cookie.
	Expires float64
}

// Driver is the browser automation surface the login flow needs.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string) error
	TypeInto(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	PageSource(ctx context.Context) (string, error)
	ReadCookies(ctx context.Context) ([]RawCookie, error)
	Close() error
}

// Browser launches isolated Driver sessions.
type Browser interface {
	Launch(ctx context.Context, userAgent string) (Driver, error)
}

// FallbackLogin performs the login without a browser.
type FallbackLogin interface {
	Login(ctx context.Context, id auth.Identity, userAgent string) ([]RawCookie, error)
}
