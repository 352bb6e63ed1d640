package filesystem

import (
	"io"
	"os"
	"path/filepath"
)

// Cache backs gache stores with the active backend, so the artifact index
// and the release check follow SetMemMapFs in tests.
type Cache struct{}

// OpenFile opens name, creating its parent directory first when the file may be created.
func (Cache) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if flag&os.O_CREATE != 0 {
		if err := API().MkdirAll(filepath.Dir(name), os.ModePerm); err != nil {
			return nil, err
		}
	}

	return API().OpenFile(name, flag, perm)
}

func (Cache) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}
