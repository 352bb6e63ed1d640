package acquire

import (
	"context"

	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
)

// Persister stores resolved media.
type Persister interface {
	Persist(ctx context.Context, media *source.ResolvedMedia) (*source.StoredArtifact, error)
}

// Result is the outcome of a download.
type Result struct {
	Artifact source.StoredArtifact
	Strategy string
	// Cached is true when the artifact was already stored.
	Cached bool
}

// Pipeline validates a URL, acquires the media and persists it. At most one
// download per source runs at a time; later callers for the same source
// wait and then find the stored artifact.
type Pipeline struct {
	orchestrator *Orchestrator
	persister    Persister
	allowedHosts []string
	locks        *keyedLock
}

func NewPipeline(orchestrator *Orchestrator, persister Persister, allowedHosts []string) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		persister:    persister,
		allowedHosts: allowedHosts,
		locks:        newKeyedLock(),
	}
}

// Download returns the stored artifact for rawURL, fetching it when needed.
func (p *Pipeline) Download(ctx context.Context, rawURL string) (*Result, error) {
	req, err := source.NewRequest(rawURL, p.allowedHosts)
	if err != nil {
		return nil, err
	}

	unlock, err := p.locks.Lock(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	media, err := p.orchestrator.Acquire(ctx, req)
	if err != nil {
		return nil, err
	}

	if media.Stored() {
		return &Result{Artifact: *media.Artifact, Strategy: media.Strategy, Cached: true}, nil
	}

	artifact, err := p.persister.Persist(ctx, media)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"source_id": artifact.SourceID,
		"strategy":  media.Strategy,
		"size":      artifact.Size,
	}).Info("download stored")

	return &Result{Artifact: *artifact, Strategy: media.Strategy}, nil
}

// Orchestrator returns the underlying orchestrator.
func (p *Pipeline) Orchestrator() *Orchestrator {
	return p.orchestrator
}
