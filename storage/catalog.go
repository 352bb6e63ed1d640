package storage

import (
	"errors"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrNotFound is returned for source ids without a stored artifact.
var ErrNotFound = errors.New("artifact not found")

// Catalog ties the index to the files in storage.
type Catalog struct {
	storage Storage
	index   *Index
}

func NewCatalog(storage Storage, index *Index) *Catalog {
	return &Catalog{storage: storage, index: index}
}

// Storage returns the backing storage.
func (c *Catalog) Storage() Storage {
	return c.storage
}

// Find returns the artifact for sourceID when its video file exists and is not empty.
// Index entries whose video has vanished are dropped.
func (c *Catalog) Find(sourceID string) mo.Option[source.StoredArtifact] {
	entry, err := c.index.Get(sourceID)
	if err != nil {
		log.WithError(err).Warn("reading artifact index")
		return mo.None[source.StoredArtifact]()
	}

	a, ok := entry.Get()
	if !ok {
		return mo.None[source.StoredArtifact]()
	}

	if size, err := c.storage.Size(a.VideoPath); err != nil || size == 0 {
		log.WithFields(log.Fields{"source_id": sourceID}).Warn("indexed video is missing or empty, forgetting it")
		if err := c.index.Remove(sourceID); err != nil {
			log.WithError(err).Warn("updating artifact index")
		}
		return mo.None[source.StoredArtifact]()
	}

	return mo.Some(a)
}

func (c *Catalog) Put(a source.StoredArtifact) error {
	return c.index.Put(a)
}

// Delete removes the artifact's files and its index entry.
func (c *Catalog) Delete(sourceID string) error {
	entry, err := c.index.Get(sourceID)
	if err != nil {
		return err
	}

	a, ok := entry.Get()
	if !ok {
		return ErrNotFound
	}

	var result *multierror.Error

	if err := c.storage.Delete(a.VideoPath); err != nil {
		result = multierror.Append(result, err)
	}

	if a.HasThumbnail() {
		if err := c.storage.Delete(a.ThumbnailPath); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := c.index.Remove(sourceID); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// List returns every indexed artifact, oldest first.
func (c *Catalog) List() ([]source.StoredArtifact, error) {
	entries, err := c.index.All()
	if err != nil {
		return nil, err
	}

	artifacts := lo.Values(entries)
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})

	return artifacts, nil
}
