package server

import (
	"context"
	"errors"
	"net/http"
	"path"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/offtube/offtube/acquire"
	"github.com/offtube/offtube/fetch"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
	"github.com/offtube/offtube/storage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string        `json:"error"`
	Details  string        `json:"details"`
	Attempts []AttemptView `json:"attempts,omitempty"`
}

// AttemptView is one strategy failure as reported to clients.
type AttemptView struct {
	Strategy string `json:"strategy"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	URL string `json:"url" binding:"required"`
}

// DownloadResponse is returned by POST /download.
type DownloadResponse struct {
	Success       bool   `json:"success"`
	SourceID      string `json:"sourceId"`
	Title         string `json:"title"`
	MediaPath     string `json:"mediaPath"`
	ThumbnailPath string `json:"thumbnailPath"`
	MediaURL      string `json:"mediaUrl,omitempty"`
	Strategy      string `json:"strategy"`
	Cached        bool   `json:"cached"`
	Size          int64  `json:"size"`
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func abort(c *gin.Context, status int, kind, details string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: kind, Details: details})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.opts.Version})
}

func (s *Server) handleDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "validation", "request body must be json with a url")
		return
	}

	result, err := s.downloader.Download(c.Request.Context(), req.URL)
	if err != nil {
		s.downloadFailed(c, err)
		return
	}

	a := result.Artifact
	resp := DownloadResponse{
		Success:       true,
		SourceID:      a.SourceID,
		Title:         a.Title,
		MediaPath:     a.VideoPath,
		ThumbnailPath: a.ThumbnailPath,
		Strategy:      result.Strategy,
		Cached:        result.Cached,
		Size:          a.Size,
	}

	if signed, err := s.files.SignedURL(a.VideoPath, s.opts.SignedURLTTL); err == nil {
		resp.MediaURL = signed
	} else if !errors.Is(err, storage.ErrNoSecret) {
		log.WithError(err).Warn("signing media url")
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) downloadFailed(c *gin.Context, err error) {
	var (
		verr *source.ValidationError
		aerr *acquire.AcquisitionError
		ferr *fetch.Error
	)

	switch {
	case errors.As(err, &verr):
		abort(c, http.StatusBadRequest, "validation", verr.Error())
	case errors.As(err, &aerr):
		views := make([]AttemptView, len(aerr.Attempts))
		for i, a := range aerr.Attempts {
			views[i] = AttemptView{Strategy: a.Strategy, Kind: string(a.Err.Kind), Detail: a.Err.Error()}
			if a.Refresh != nil {
				views[i].Detail += "; refresh: " + a.Refresh.Error()
			}
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{
			Error:    "acquisition",
			Details:  "every extraction strategy failed",
			Attempts: views,
		})
	case errors.As(err, &ferr):
		abort(c, http.StatusInternalServerError, string(ferr.Kind), ferr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		abort(c, http.StatusServiceUnavailable, "canceled", err.Error())
	default:
		abort(c, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (s *Server) artifact(c *gin.Context) (source.StoredArtifact, bool) {
	id := c.Param("id")
	if !idPattern.MatchString(id) {
		abort(c, http.StatusBadRequest, "validation", "malformed id")
		return source.StoredArtifact{}, false
	}

	a, ok := s.catalog.Find(id).Get()
	if !ok {
		abort(c, http.StatusNotFound, "not_found", "no stored artifact for "+id)
		return source.StoredArtifact{}, false
	}
	return a, true
}

func (s *Server) handleMedia(c *gin.Context) {
	a, ok := s.artifact(c)
	if !ok {
		return
	}

	if s.opts.RequireSigned {
		if err := s.files.Verify(a.VideoPath, c.Query("expires"), c.Query("signature")); err != nil {
			abort(c, http.StatusForbidden, "forbidden", err.Error())
			return
		}
	}

	s.serve(c, a.VideoPath, "video/mp4")
}

func (s *Server) handleThumbnail(c *gin.Context) {
	a, ok := s.artifact(c)
	if !ok {
		return
	}

	if !a.HasThumbnail() {
		abort(c, http.StatusNotFound, "not_found", "no thumbnail stored for "+a.SourceID)
		return
	}

	s.serve(c, a.ThumbnailPath, "image/jpeg")
}

func (s *Server) serve(c *gin.Context, key, contentType string) {
	f, err := s.files.Open(key)
	if err != nil {
		abort(c, http.StatusNotFound, "not_found", "stored file is missing")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		abort(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	c.Header("Content-Type", contentType)
	http.ServeContent(c.Writer, c.Request, path.Base(key), info.ModTime(), f)
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if !idPattern.MatchString(id) {
		abort(c, http.StatusBadRequest, "validation", "malformed id")
		return
	}

	if err := s.catalog.Delete(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			abort(c, http.StatusNotFound, "not_found", "no stored artifact for "+id)
			return
		}
		abort(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "sourceId": id})
}

func (s *Server) handleDebug(c *gin.Context) {
	c.JSON(http.StatusOK, s.debug())
}
