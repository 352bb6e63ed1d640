package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/offtube/offtube/network"
)

// Probe requests the first byte of mediaURL and returns the response status.
func Probe(ctx context.Context, client *http.Client, mediaURL string, headers map[string]string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, fail(MalformedResponse, fmt.Sprintf("invalid media url %q", mediaURL), err)
	}

	req.Header.Set("Range", "bytes=0-0")
	req.Header.Set("User-Agent", network.RandomUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
