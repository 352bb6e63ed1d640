// Package storage persists downloaded artifacts and keeps an index of them.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/filesystem"
	"github.com/spf13/afero"
)

var (
	ErrNoSecret         = errors.New("signed urls need storage.secret to be set")
	ErrExpired          = errors.New("signed url has expired")
	ErrInvalidSignature = errors.New("signature does not match")
)

// Storage is the durable home of artifact files. Paths are slash-separated keys
// relative to the storage root.
type Storage interface {
	Exists(path string) bool
	Size(path string) (int64, error)
	Upload(localPath, remotePath string) error
	Download(remotePath, localPath string) error
	SignedURL(remotePath string, ttl time.Duration) (string, error)
	Delete(path string) error
	Open(path string) (afero.File, error)
}

// VideoKey is the storage key of a source's video file.
func VideoKey(sourceID string) string {
	return "videos/" + sourceID + constant.VideoExt
}

// ThumbnailKey is the storage key of a source's thumbnail.
func ThumbnailKey(sourceID string) string {
	return "thumbnails/" + sourceID + constant.ThumbnailExt
}

// Local stores files below Root on the active filesystem backend.
type Local struct {
	Root   string
	Secret []byte
	// URLFor maps a key to the public path signed URLs point at.
	URLFor func(remotePath string) string

	now func() time.Time
}

func NewLocal(root string, secret []byte, urlFor func(string) string) *Local {
	if urlFor == nil {
		urlFor = func(p string) string { return "/files/" + p }
	}

	return &Local{Root: root, Secret: secret, URLFor: urlFor, now: time.Now}
}

// Path resolves a key to its location on the filesystem. Keys cannot escape Root.
func (l *Local) Path(remotePath string) string {
	return filepath.Join(l.Root, filepath.FromSlash(filepath.Clean("/"+remotePath)))
}

func (l *Local) Exists(remotePath string) bool {
	info, err := filesystem.API().Stat(l.Path(remotePath))
	return err == nil && !info.IsDir()
}

func (l *Local) Size(remotePath string) (int64, error) {
	info, err := filesystem.API().Stat(l.Path(remotePath))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Upload moves localPath into the store. It is renamed when possible and copied otherwise.
func (l *Local) Upload(localPath, remotePath string) error {
	fs := filesystem.API()
	dst := l.Path(remotePath)

	if err := fs.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}

	if err := fs.Rename(localPath, dst); err == nil {
		return nil
	}

	tmp := dst + ".part"
	if err := copyFile(localPath, tmp); err != nil {
		_ = fs.Remove(tmp)
		return err
	}

	if err := fs.Rename(tmp, dst); err != nil {
		_ = fs.Remove(tmp)
		return err
	}

	return fs.Remove(localPath)
}

func (l *Local) Download(remotePath, localPath string) error {
	if err := filesystem.API().MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return err
	}
	return copyFile(l.Path(remotePath), localPath)
}

// SignedURL returns the public URL of remotePath with an expiry and an HMAC signature.
func (l *Local) SignedURL(remotePath string, ttl time.Duration) (string, error) {
	if len(l.Secret) == 0 {
		return "", ErrNoSecret
	}

	expires := strconv.FormatInt(l.now().Add(ttl).Unix(), 10)
	query := url.Values{
		"expires":   {expires},
		"signature": {l.sign(remotePath, expires)},
	}

	return l.URLFor(remotePath) + "?" + query.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (l *Local) Verify(remotePath, expires, signature string) error {
	if len(l.Secret) == 0 {
		return ErrNoSecret
	}

	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad expiry %q", ErrInvalidSignature, expires)
	}

	if l.now().Unix() > unix {
		return ErrExpired
	}

	want := l.sign(remotePath, expires)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}

func (l *Local) sign(remotePath, expires string) string {
	mac := hmac.New(sha256.New, l.Secret)
	mac.Write([]byte(remotePath + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

// Delete removes remotePath. Deleting a missing file is not an error.
func (l *Local) Delete(remotePath string) error {
	err := filesystem.API().Remove(l.Path(remotePath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) Open(remotePath string) (afero.File, error) {
	return filesystem.API().Open(l.Path(remotePath))
}

func copyFile(src, dst string) error {
	fs := filesystem.API()

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
