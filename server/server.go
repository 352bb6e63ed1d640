// Package server exposes downloads and stored artifacts over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offtube/offtube/acquire"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
	"github.com/samber/mo"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// Downloader runs the download pipeline.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (*acquire.Result, error)
}

// Catalog finds and deletes stored artifacts.
type Catalog interface {
	Find(sourceID string) mo.Option[source.StoredArtifact]
	Delete(sourceID string) error
}

// Files opens and signs stored files.
type Files interface {
	Open(path string) (afero.File, error)
	SignedURL(path string, ttl time.Duration) (string, error)
	Verify(path, expires, signature string) error
}

// Options configure the server.
type Options struct {
	Address string
	// APIKey guards /debug and DELETE /media/:id. An empty key disables /debug.
	APIKey        string
	RateLimit     float64
	RateBurst     int
	RequireSigned bool
	SignedURLTTL  time.Duration
	Version       string
}

// Server is the HTTP surface.
type Server struct {
	opts       Options
	downloader Downloader
	catalog    Catalog
	files      Files
	debug      func() gin.H
	limiter    *rate.Limiter
	engine     *gin.Engine
}

// New builds the router. debug may be nil.
func New(opts Options, downloader Downloader, catalog Catalog, files Files, debug func() gin.H) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:       opts,
		downloader: downloader,
		catalog:    catalog,
		files:      files,
		debug:      debug,
		engine:     gin.New(),
	}

	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	}

	s.engine.Use(gin.Recovery(), requestID(), logging())

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/download", s.rateLimit(), s.handleDownload)
	s.engine.GET("/media/:id", s.handleMedia)
	s.engine.GET("/thumbnails/:id", s.handleThumbnail)
	s.engine.DELETE("/media/:id", s.requireKey(), s.handleDelete)

	if opts.APIKey != "" && debug != nil {
		s.engine.GET("/debug", s.requireKey(), s.handleDebug)
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", s.opts.Address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
