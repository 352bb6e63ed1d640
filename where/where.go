// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/filesystem"
	"github.com/samber/lo"
)

// Environment overrides for the configuration and data directories.
const (
	EnvConfigPath = "OFFTUBE_CONFIG_PATH"
	EnvDataPath   = "OFFTUBE_DATA_PATH"
)

// ensureDir guarantees the existence of a directory at the specified path, creating it if necessary.
func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// It follows XDG_CONFIG_HOME on Linux and the equivalent user profile paths on Darwin and Windows.
// The path can be overridden via the OFFTUBE_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Offtube))
}

// Data resolves the root directory holding downloaded artifacts and session state.
// Overridable via OFFTUBE_DATA_PATH, which is how container deployments point it at a volume.
func Data() string {
	if custom, ok := os.LookupEnv(EnvDataPath); ok {
		return ensureDir(custom)
	}

	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "data")
	}
	return ensureDir(filepath.Join(base, constant.Offtube))
}

// Logs resolves the absolute path to the directory used for application diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Videos resolves the directory of stored media files.
func Videos() string {
	return ensureDir(filepath.Join(Data(), "videos"))
}

// Thumbnails resolves the directory of stored thumbnails.
func Thumbnails() string {
	return ensureDir(filepath.Join(Data(), "thumbnails"))
}

// Cookies resolves the persisted credential bundle file.
func Cookies() string {
	return filepath.Join(ensureDir(filepath.Join(Data(), "session")), "cookies.txt")
}

// Artifacts resolves the artifact index file.
func Artifacts() string {
	return filepath.Join(Data(), "artifacts.json")
}

// Cache resolves a directory for small cached lookups, such as release checks.
func Cache() string {
	return ensureDir(filepath.Join(Data(), "cache"))
}

// Temp resolves a volatile directory for partial downloads and transient cookie files.
// It shares a volume with Videos so finished downloads can be renamed into place.
func Temp() string {
	return ensureDir(filepath.Join(Data(), "tmp"))
}
