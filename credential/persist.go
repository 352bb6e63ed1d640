package credential

import (
	"bytes"
	"fmt"

	"github.com/offtube/offtube/filesystem"
)

// Save writes the bundle's cookies to path atomically with owner-only permissions.
func Save(path string, b Bundle) error {
	if err := filesystem.WriteAtomic(path, Marshal(b.Cookies), 0600); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}

// Load reads a bundle previously written by Save. CapturedAt is the file's modification time.
func Load(path string) (Bundle, error) {
	info, err := filesystem.API().Stat(path)
	if err != nil {
		return Bundle{}, err
	}

	data, err := filesystem.API().ReadFile(path)
	if err != nil {
		return Bundle{}, err
	}

	cookies, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{Cookies: cookies, CapturedAt: info.ModTime()}, nil
}
