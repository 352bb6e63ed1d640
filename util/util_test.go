package util

import (
	"testing"

	"github.com/offtube/offtube/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "file", "files"), ShouldEqual, "1 file")
		So(Quantify(2, "file", "files"), ShouldEqual, "2 files")
		So(Quantify(0, "file", "files"), ShouldEqual, "0 files")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("hello"), ShouldEqual, "Hello")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestMaxMin(t *testing.T) {
	Convey("Max/Min", t, func() {
		So(Max(1, 5, 2), ShouldEqual, 5)
		So(Min(1, 5, 2), ShouldEqual, 1)
		So(Max[int](), ShouldEqual, 0)
	})
}

func TestWrapWidth(t *testing.T) {
	Convey("WrapWidth falls back to the limit outside a terminal", t, func() {
		So(WrapWidth(80), ShouldBeBetweenOrEqual, 40, 80)
	})
}

func TestDelete(t *testing.T) {
	Convey("Delete", t, func() {
		fs := filesystem.API()

		Convey("Should remove a directory tree", func() {
			So(fs.MkdirAll("/tmp/util/a/b", 0o755), ShouldBeNil)
			So(fs.WriteFile("/tmp/util/a/b/c.txt", []byte("x"), 0o644), ShouldBeNil)
			So(Delete("/tmp/util/a"), ShouldBeNil)

			exists, _ := fs.Exists("/tmp/util/a")
			So(exists, ShouldBeFalse)
		})

		Convey("Should remove a single file", func() {
			So(fs.WriteFile("/tmp/util/file.txt", []byte("x"), 0o644), ShouldBeNil)
			So(Delete("/tmp/util/file.txt"), ShouldBeNil)

			exists, _ := fs.Exists("/tmp/util/file.txt")
			So(exists, ShouldBeFalse)
		})

		Convey("Should fail on a missing path", func() {
			So(Delete("/tmp/util/missing"), ShouldNotBeNil)
		})
	})
}
