// Package network provides pre-configured HTTP clients and transports shared by the extraction and login layers.
package network

import (
	"net/http"
	"time"
)

// Client is the shared HTTP client for metadata-sized requests.
// Media downloads use their own context deadline instead of a client timeout.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: newTransport(),
}

// Downloader is the shared client for streaming media bodies; it has no overall timeout.
var Downloader = &http.Client{
	Transport: newTransport(),
}

// newTransport initializes a tuned http.Transport with pool and timeout parameters suited to many concurrent hosts.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 16
	t.MaxConnsPerHost = 64
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}
