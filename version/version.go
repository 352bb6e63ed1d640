package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/network"
	"github.com/offtube/offtube/util"
	"github.com/offtube/offtube/where"
	"github.com/spf13/viper"
)

// ErrDisabled is returned when no release feed is configured.
var ErrDisabled = errors.New("release check disabled")

var releaseCacher = sync.OnceValue(func() *gache.Cache[string] {
	return gache.New[string](&gache.Options{
		Path:       releasePath(),
		Lifetime:   time.Hour * 24 * 2,
		FileSystem: &filesystem.Cache{},
	})
})

func releasePath() string {
	return filepath.Join(where.Cache(), "tool-release.json")
}

// Latest returns the newest published release of the downloader tool.
// The answer is cached for two days to stay clear of the feed's rate limits.
func Latest(ctx context.Context) (string, error) {
	feed := viper.GetString(key.ToolReleaseURL)
	if feed == "" {
		return "", ErrDisabled
	}

	cached, expired, err := releaseCacher().Get()
	if err != nil {
		return "", err
	}

	if !expired && cached != "" {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := network.Client.Do(req)
	if err != nil {
		return "", err
	}

	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release feed: unexpected status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	if latest == "" {
		return "", errors.New("empty tag name")
	}

	_ = releaseCacher().Set(latest)
	return latest, nil
}
