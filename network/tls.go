package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const dialTimeout = 30 * time.Second

// ChromeTransport performs requests with a Chrome 120 TLS ClientHello.
// It tries HTTP/2 first and transparently falls back to HTTP/1.1 when the
// handshake or the h2 exchange fails. Conversion services behind anti-bot
// CDNs reject the stock Go fingerprint.
type ChromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// NewChromeTransport returns a ready to use ChromeTransport.
func NewChromeTransport() *ChromeTransport {
	return &ChromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialChrome(ctx, network, addr, nil)
			},
		},
		h1: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialChrome(ctx, network, addr, []string{"http/1.1"})
			},
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *ChromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}

		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		retry.Body = body
	}

	return t.h1.RoundTrip(retry)
}

// NewChromeClient wraps a ChromeTransport in a client with the given timeout.
func NewChromeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewChromeTransport(),
	}
}

// dialChrome opens a TCP connection and performs a uTLS handshake mimicking Chrome.
// A nil protos keeps Chrome's own ALPN list (h2, http/1.1).
func dialChrome(ctx context.Context, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
