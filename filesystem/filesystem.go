// Package filesystem provides a virtualized abstraction layer for all filesystem operations.
//
// It uses afero so that the OS-backed filesystem can be swapped for an in-memory one in tests.
package filesystem

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active afero.Afero instance for filesystem interaction.
func API() afero.Afero {
	return backend
}

// SetOsFs restores the filesystem backend to the native operating system implementation.
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs initializes a volatile in-memory filesystem backend for unit testing.
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}

// WriteAtomic writes data next to path and renames it into place, so readers
// never observe a partially written file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if err := backend.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := backend.WriteFile(tmp, data, perm); err != nil {
		_ = backend.Remove(tmp)
		return err
	}

	return backend.Rename(tmp, path)
}
