package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			fs := API()
			So(fs, ShouldNotBeNil)
			So(fs.Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			fs := API()
			So(fs, ShouldNotBeNil)
			So(fs.Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestWriteAtomic(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		SetMemMapFs()

		Convey("WriteAtomic creates parents and leaves no temp file", func() {
			So(WriteAtomic("/a/b/c.txt", []byte("hello"), 0600), ShouldBeNil)

			data, err := API().ReadFile("/a/b/c.txt")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "hello")

			exists, _ := API().Exists("/a/b/c.txt.tmp")
			So(exists, ShouldBeFalse)
		})

		Convey("WriteAtomic replaces existing content", func() {
			So(WriteAtomic("/x.txt", []byte("one"), 0600), ShouldBeNil)
			So(WriteAtomic("/x.txt", []byte("two"), 0600), ShouldBeNil)

			data, _ := API().ReadFile("/x.txt")
			So(string(data), ShouldEqual, "two")
		})
	})
}

func TestCache(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		SetMemMapFs()

		Convey("Creating a cache file makes its parent directory", func() {
			f, err := Cache{}.OpenFile("/cache/nested/index.json", os.O_CREATE|os.O_WRONLY, 0o644)
			So(err, ShouldBeNil)
			_, err = f.Write([]byte("{}"))
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			data, err := API().ReadFile("/cache/nested/index.json")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "{}")
		})

		Convey("Opening a missing file read-only fails", func() {
			_, err := Cache{}.OpenFile("/cache/absent.json", os.O_RDONLY, 0)
			So(err, ShouldNotBeNil)
		})
	})
}
