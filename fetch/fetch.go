// Package fetch streams resolved media into storage.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/network"
	"github.com/offtube/offtube/source"
	"github.com/offtube/offtube/storage"
)

const bufferSize = 256 << 10

// Indexer records stored artifacts.
type Indexer interface {
	Put(a source.StoredArtifact) error
}

// Fetcher downloads media and thumbnails into storage.
type Fetcher struct {
	Client  *http.Client
	Storage storage.Storage
	Index   Indexer
	// TempDir holds partial downloads until they are committed.
	TempDir string
	Timeout time.Duration

	now func() time.Time
}

func New(client *http.Client, store storage.Storage, index Indexer, tempDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:  client,
		Storage: store,
		Index:   index,
		TempDir: tempDir,
		Timeout: timeout,
		now:     time.Now,
	}
}

// Persist stores the media of resolved and, best effort, its thumbnail.
// The video only appears in storage once it was fully written.
func (f *Fetcher) Persist(ctx context.Context, resolved *source.ResolvedMedia) (*source.StoredArtifact, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	logger := log.WithFields(log.Fields{"source_id": resolved.SourceID})

	videoKey := storage.VideoKey(resolved.SourceID)
	size, err := f.download(ctx, resolved.MediaURL, resolved.Headers, videoKey)
	if err != nil {
		return nil, err
	}

	artifact := &source.StoredArtifact{
		SourceID:  resolved.SourceID,
		Title:     resolved.Title,
		VideoPath: videoKey,
		Size:      size,
		Quality:   resolved.Quality,
		CreatedAt: f.now().UTC(),
	}

	if thumb, ok := resolved.ThumbnailURL.Get(); ok {
		thumbKey := storage.ThumbnailKey(resolved.SourceID)
		if _, err := f.download(ctx, thumb, nil, thumbKey); err != nil {
			logger.WithError(err).Warn("thumbnail download failed")
		} else {
			artifact.ThumbnailPath = thumbKey
		}
	}

	if f.Index != nil {
		if err := f.Index.Put(*artifact); err != nil {
			return nil, fail(WriteError, "index artifact", err)
		}
	}

	logger.WithFields(log.Fields{"size": size}).Debug("artifact committed")
	return artifact, nil
}

// download streams url into a temp file and commits it to key.
func (f *Fetcher) download(ctx context.Context, url string, headers map[string]string, key string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fail(NetworkError, fmt.Sprintf("invalid url %q", url), err)
	}

	req.Header.Set("User-Agent", network.RandomUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return 0, fail(NetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fail(NetworkError, fmt.Sprintf("server answered %d", resp.StatusCode), nil)
	}

	fs := filesystem.API()
	if err := fs.MkdirAll(f.TempDir, os.ModePerm); err != nil {
		return 0, fail(WriteError, "create temp dir", err)
	}

	tmp := filepath.Join(f.TempDir, uuid.NewString()+".part")
	file, err := fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fail(WriteError, "create temp file", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = fs.Remove(tmp)
		}
	}()

	w := &trackingWriter{w: file}
	n, err := io.CopyBuffer(w, resp.Body, make([]byte, bufferSize))
	closeErr := file.Close()

	switch {
	case w.err != nil:
		return 0, fail(WriteError, "write temp file", w.err)
	case err != nil:
		return 0, fail(NetworkError, "body interrupted", err)
	case closeErr != nil:
		return 0, fail(WriteError, "close temp file", closeErr)
	case resp.ContentLength > 0 && n != resp.ContentLength:
		return 0, fail(NetworkError, fmt.Sprintf("got %d of %d bytes", n, resp.ContentLength), io.ErrUnexpectedEOF)
	case n == 0:
		return 0, fail(EmptyBody, "server sent no bytes", nil)
	}

	if err := f.Storage.Upload(tmp, key); err != nil {
		return 0, fail(WriteError, "commit "+key, err)
	}
	committed = true

	return n, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return network.Downloader
	}
	return f.Client
}

// trackingWriter remembers the first write error so it can be told apart from read errors.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
