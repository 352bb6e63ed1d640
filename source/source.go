// Package source models the inputs and outputs of a download: the validated request,
// stream candidates offered by a strategy, the resolved media and the stored artifact.
package source

import (
	"time"

	"github.com/samber/mo"
)

// Container is the media container of a stream candidate.
type Container string

const (
	MP4   Container = "mp4"
	Other Container = "other"
)

// ContainerOf maps a file extension or mime subtype to a Container.
func ContainerOf(ext string) Container {
	if ext == "mp4" || ext == ".mp4" || ext == "video/mp4" {
		return MP4
	}
	return Other
}

// StreamCandidate is one stream variant offered by a strategy.
type StreamCandidate struct {
	Container   Container
	QualityRank int
	HasAudio    bool
	URL         string
}

// ResolvedMedia is the outcome of a successful extraction.
type ResolvedMedia struct {
	SourceID     string
	Title        string
	ThumbnailURL mo.Option[string]
	MediaURL     string
	Quality      int

	// Headers are sent with the media request, e.g. replayed session cookies.
	Headers map[string]string

	// Strategy names the strategy that produced the media.
	Strategy string

	// Artifact is set when the media is already stored and no fetch is needed.
	Artifact *StoredArtifact
}

// Stored reports whether the media points at an existing artifact.
func (r *ResolvedMedia) Stored() bool {
	return r.Artifact != nil
}

// StoredArtifact is the persisted (video, thumbnail) pair of one source.
type StoredArtifact struct {
	SourceID      string    `json:"source_id"`
	Title         string    `json:"title"`
	VideoPath     string    `json:"video_path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	Size          int64     `json:"size"`
	Quality       int       `json:"quality,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasThumbnail reports whether a thumbnail was stored alongside the video.
func (a *StoredArtifact) HasThumbnail() bool {
	return a.ThumbnailPath != ""
}
