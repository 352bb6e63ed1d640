// Package retention bounds storage growth by deleting old artifacts on a fixed tick.
package retention

import (
	"context"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
	"github.com/spf13/afero"
)

// Catalog is the part of the artifact catalog the sweeper needs.
type Catalog interface {
	List() ([]source.StoredArtifact, error)
	Delete(sourceID string) error
}

// Sweeper deletes artifacts older than MaxAge. Files in Dirs that are not
// indexed are removed once their modification time passes MaxAge.
type Sweeper struct {
	Catalog  Catalog
	MaxAge   time.Duration
	Interval time.Duration
	Dirs     []string
	// Resolve maps a storage key to its filesystem path.
	Resolve func(key string) string

	now func() time.Time
}

func New(catalog Catalog, maxAge, interval time.Duration, resolve func(string) string, dirs ...string) *Sweeper {
	return &Sweeper{
		Catalog:  catalog,
		MaxAge:   maxAge,
		Interval: interval,
		Dirs:     dirs,
		Resolve:  resolve,
		now:      time.Now,
	}
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepOnce()
			if err != nil {
				log.WithError(err).Warn("retention sweep finished with errors")
			}
			if removed > 0 {
				log.Infof("retention sweep removed %d items", removed)
			}
		}
	}
}

// SweepOnce performs a single sweep and returns how many artifacts and orphan files it removed.
func (s *Sweeper) SweepOnce() (int, error) {
	var (
		result  *multierror.Error
		removed int
		cutoff  = s.now().Add(-s.MaxAge)
		keep    = make(map[string]bool)
	)

	artifacts, err := s.Catalog.List()
	if err != nil {
		return 0, err
	}

	for _, a := range artifacts {
		if a.CreatedAt.Before(cutoff) {
			if err := s.Catalog.Delete(a.SourceID); err != nil {
				result = multierror.Append(result, err)
				continue
			}

			log.WithFields(log.Fields{"source_id": a.SourceID, "age": s.now().Sub(a.CreatedAt).Round(time.Second)}).Info("expired artifact deleted")
			removed++
			continue
		}

		if s.Resolve != nil {
			keep[s.Resolve(a.VideoPath)] = true
			if a.HasThumbnail() {
				keep[s.Resolve(a.ThumbnailPath)] = true
			}
		}
	}

	fs := filesystem.API()
	for _, dir := range s.Dirs {
		if ok, _ := fs.DirExists(dir); !ok {
			continue
		}

		err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() || keep[path] {
				return nil
			}

			if info.ModTime().Before(cutoff) {
				if err := fs.Remove(path); err != nil {
					result = multierror.Append(result, err)
					return nil
				}

				log.WithFields(log.Fields{"path": path}).Debug("orphan file removed")
				removed++
			}
			return nil
		})
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	return removed, result.ErrorOrNil()
}
