package storage

import (
	"sync"

	"github.com/metafates/gache"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/source"
	"github.com/samber/mo"
)

// Index is the on-disk registry of stored artifacts keyed by source id.
type Index struct {
	mu     sync.Mutex
	cacher *gache.Cache[map[string]source.StoredArtifact]
}

func NewIndex(path string) *Index {
	return &Index{
		cacher: gache.New[map[string]source.StoredArtifact](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.Cache{},
		}),
	}
}

// load returns the current entries; the caller must hold mu.
func (i *Index) load() (map[string]source.StoredArtifact, error) {
	entries, expired, err := i.cacher.Get()
	if err != nil {
		return nil, err
	}

	if expired || entries == nil {
		return make(map[string]source.StoredArtifact), nil
	}

	return entries, nil
}

func (i *Index) Get(sourceID string) (mo.Option[source.StoredArtifact], error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entries, err := i.load()
	if err != nil {
		return mo.None[source.StoredArtifact](), err
	}

	a, ok := entries[sourceID]
	if !ok {
		return mo.None[source.StoredArtifact](), nil
	}
	return mo.Some(a), nil
}

func (i *Index) Put(a source.StoredArtifact) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entries, err := i.load()
	if err != nil {
		return err
	}

	entries[a.SourceID] = a
	return i.cacher.Set(entries)
}

func (i *Index) Remove(sourceID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entries, err := i.load()
	if err != nil {
		return err
	}

	if _, ok := entries[sourceID]; !ok {
		return nil
	}

	delete(entries, sourceID)
	return i.cacher.Set(entries)
}

// All returns a copy of every entry.
func (i *Index) All() (map[string]source.StoredArtifact, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entries, err := i.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]source.StoredArtifact, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return out, nil
}
