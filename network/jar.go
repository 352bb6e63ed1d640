package network

import (
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"
)

// NewJar returns a cookie jar that scopes cookies by registrable domain.
func NewJar() http.CookieJar {
	// cookiejar.New only fails on a nil-able options field we always set
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}
