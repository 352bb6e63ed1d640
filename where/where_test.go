package where

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/offtube/offtube/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Videos() and Thumbnails() live under Data()", func() {
			So(filepath.Dir(Videos()), ShouldEqual, Data())
			So(filepath.Dir(Thumbnails()), ShouldEqual, Data())
			So(lo.Must(filesystem.API().IsDir(Videos())), ShouldBeTrue)
		})

		Convey("Cookies() creates its parent directory", func() {
			path := Cookies()
			So(filepath.Base(path), ShouldEqual, "cookies.txt")
			So(lo.Must(filesystem.API().IsDir(filepath.Dir(path))), ShouldBeTrue)
		})

		Convey("Data() honours the environment override", func() {
			lo.Must0(os.Setenv(EnvDataPath, "/srv/offtube"))
			defer os.Unsetenv(EnvDataPath)

			So(Data(), ShouldEqual, "/srv/offtube")
			So(Artifacts(), ShouldEqual, "/srv/offtube/artifacts.json")
			So(Temp(), ShouldEqual, "/srv/offtube/tmp")
			So(Cache(), ShouldEqual, "/srv/offtube/cache")
		})
	})
}
