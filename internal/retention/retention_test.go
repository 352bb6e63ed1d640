package retention

import (
	"errors"
	"testing"
	"time"

	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/source"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCatalog struct {
	artifacts map[string]source.StoredArtifact
	failOn    string
}

func (c *fakeCatalog) List() ([]source.StoredArtifact, error) {
	return lo.Values(c.artifacts), nil
}

func (c *fakeCatalog) Delete(id string) error {
	if id == c.failOn {
		return errors.New("permission denied")
	}
	delete(c.artifacts, id)
	return nil
}

func resolve(key string) string {
	return "/data/" + key
}

func TestSweeper(t *testing.T) {
	Convey("Given a sweeper with a 12h max age", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		catalog := &fakeCatalog{artifacts: map[string]source.StoredArtifact{
			"old":   {SourceID: "old", VideoPath: "videos/old.mp4", CreatedAt: now.Add(-13 * time.Hour)},
			"young": {SourceID: "young", VideoPath: "videos/young.mp4", ThumbnailPath: "thumbnails/young.jpg", CreatedAt: now.Add(-time.Hour)},
		}}

		s := New(catalog, 12*time.Hour, time.Hour, resolve, "/data/videos", "/data/thumbnails")
		s.now = func() time.Time { return now }

		Convey("Old artifacts are deleted and young ones kept", func() {
			removed, err := s.SweepOnce()
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 1)
			So(catalog.artifacts, ShouldContainKey, "young")
			So(catalog.artifacts, ShouldNotContainKey, "old")
		})

		Convey("Old unindexed files are removed, indexed ones are not", func() {
			old := now.Add(-24 * time.Hour)
			for _, p := range []string{"/data/videos/orphan.mp4", "/data/videos/young.mp4", "/data/thumbnails/young.jpg"} {
				lo.Must0(fs.WriteFile(p, []byte("x"), 0o644))
				lo.Must0(fs.Chtimes(p, old, old))
			}
			lo.Must0(fs.WriteFile("/data/videos/fresh.mp4", []byte("x"), 0o644))
			lo.Must0(fs.Chtimes("/data/videos/fresh.mp4", now, now))

			removed, err := s.SweepOnce()
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 2)
			So(lo.Must(fs.Exists("/data/videos/orphan.mp4")), ShouldBeFalse)
			So(lo.Must(fs.Exists("/data/videos/young.mp4")), ShouldBeTrue)
			So(lo.Must(fs.Exists("/data/thumbnails/young.jpg")), ShouldBeTrue)
			So(lo.Must(fs.Exists("/data/videos/fresh.mp4")), ShouldBeTrue)
		})

		Convey("Failed deletions are aggregated", func() {
			catalog.failOn = "old"

			_, err := s.SweepOnce()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "permission denied")
		})
	})
}
