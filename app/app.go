// Package app wires the configured components into a running service.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offtube/offtube/acquire"
	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/extract"
	"github.com/offtube/offtube/fetch"
	"github.com/offtube/offtube/internal/monitor"
	"github.com/offtube/offtube/internal/retention"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/network"
	"github.com/offtube/offtube/server"
	"github.com/offtube/offtube/session"
	"github.com/offtube/offtube/storage"
	"github.com/offtube/offtube/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// App holds every long-lived component.
type App struct {
	Store        *credential.Store
	Refresher    acquire.Refresher
	Native       *extract.NativeTool
	Orchestrator *acquire.Orchestrator
	Storage      *storage.Local
	Catalog      *storage.Catalog
	Fetcher      *fetch.Fetcher
	Pipeline     *acquire.Pipeline
	Sweeper      *retention.Sweeper
	Monitor      *monitor.Monitor

	started time.Time
}

// New builds the application from the current configuration.
func New() (*App, error) {
	a := &App{Store: credential.NewStore(), started: time.Now()}

	a.Refresher = session.NewRefresher(a.Store,
		&session.RodBrowser{
			Bin:      viper.GetString(key.BrowserBin),
			Headless: viper.GetBool(key.BrowserHeadless),
			Timeout:  viper.GetDuration(key.BrowserTimeout),
		},
		&session.HTTPLogin{
			LoginURL:         viper.GetString(key.IdentityLoginURL),
			FormURL:          viper.GetString(key.IdentityFormURL),
			TargetURL:        viper.GetString(key.IdentityTargetURL),
			ChallengeMarkers: viper.GetStringSlice(key.IdentityChallengeMarkers),
			Timeout:          viper.GetDuration(key.BrowserTimeout),
		},
		session.Options{
			LoginURL:         viper.GetString(key.IdentityLoginURL),
			TargetURL:        viper.GetString(key.IdentityTargetURL),
			ChallengeMarkers: viper.GetStringSlice(key.IdentityChallengeMarkers),
			Domains:          viper.GetStringSlice(key.CookiesDomains),
			MaxAttempts:      viper.GetInt(key.CookiesMaxRefreshAttempts),
			Cooldown:         viper.GetDuration(key.CookiesCooldown),
			Settle:           viper.GetDuration(key.BrowserSettle),
			CookiePath:       where.Cookies(),
		},
	)

	a.Native = &extract.NativeTool{
		Path:    viper.GetString(key.ToolPath),
		Format:  viper.GetString(key.ToolFormat),
		Timeout: viper.GetDuration(key.ToolTimeout),
		Target:  viper.GetInt(key.QualityTarget),
		Classifier: extract.Classifier{
			Auth:      viper.GetStringSlice(key.ExtractAuthKeywords),
			NotFound:  viper.GetStringSlice(key.ExtractNotFoundKeywords),
			Transient: viper.GetStringSlice(key.ExtractTransientKeywords),
		},
		TempDir: where.Temp(),
	}

	strategies, err := a.strategies(viper.GetStringSlice(key.ExtractOrder))
	if err != nil {
		return nil, err
	}

	secret, err := signingSecret()
	if err != nil {
		return nil, err
	}

	a.Storage = storage.NewLocal(where.Data(), secret, publicPath)
	a.Catalog = storage.NewCatalog(a.Storage, storage.NewIndex(where.Artifacts()))
	a.Fetcher = fetch.New(network.Downloader, a.Storage, a.Catalog, where.Temp(), viper.GetDuration(key.FetchTimeout))

	a.Orchestrator = acquire.NewOrchestrator(strategies, a.Store, a.Refresher, a.Catalog, acquire.Options{
		MaxFailures:      viper.GetInt(key.CookiesMaxFailures),
		Cooldown:         viper.GetDuration(key.CookiesCooldown),
		TransientRetries: viper.GetInt(key.ExtractTransientRetries),
	})
	a.Pipeline = acquire.NewPipeline(a.Orchestrator, a.Fetcher, viper.GetStringSlice(key.SourceAllowedHosts))

	a.Sweeper = retention.New(a.Catalog,
		viper.GetDuration(key.RetentionMaxAge),
		viper.GetDuration(key.RetentionInterval),
		a.Storage.Path,
		where.Videos(), where.Thumbnails(), where.Temp(),
	)

	a.Monitor = monitor.New(a.Store, a.Refresher, a.Native,
		viper.GetString(key.CookiesProbeURL),
		viper.GetDuration(key.CookiesMaxAge),
		viper.GetDuration(key.CookiesCheckInterval),
	)

	return a, nil
}

// strategies builds the extraction strategies named in order.
func (a *App) strategies(order []string) ([]extract.Strategy, error) {
	var (
		target   = viper.GetInt(key.QualityTarget)
		scraping = network.NewChromeClient(viper.GetDuration(key.ExtractMetadataTimeout))
	)

	out := make([]extract.Strategy, 0, len(order))
	for _, name := range order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "native":
			a.Native.Client = scraping
			out = append(out, a.Native)
		case "scrape:mates":
			out = append(out, &extract.ScrapeService{
				Endpoint: &extract.Mates{BaseURL: strings.TrimRight(viper.GetString(key.ScrapeMatesURL), "/")},
				Client:   scraping,
				Target:   target,
				Probe:    true,
			})
		case "scrape:savefrom":
			out = append(out, &extract.ScrapeService{
				Endpoint: &extract.Savefrom{BaseURL: strings.TrimRight(viper.GetString(key.ScrapeSavefromURL), "/")},
				Client:   scraping,
				Target:   target,
				Probe:    true,
			})
		case "replay":
			out = append(out, &extract.AuthenticatedReplay{Client: scraping})
		default:
			return nil, fmt.Errorf("unknown extraction strategy %q in %s", name, key.ExtractOrder)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s names no strategies", key.ExtractOrder)
	}

	return out, nil
}

// publicPath maps storage keys to the routes that serve them.
func publicPath(remotePath string) string {
	id := strings.TrimSuffix(path.Base(remotePath), path.Ext(remotePath))
	if strings.HasPrefix(remotePath, "thumbnails/") {
		return "/thumbnails/" + id
	}
	return "/media/" + id
}

func signingSecret() ([]byte, error) {
	if s := viper.GetString(key.StorageSecret); s != "" {
		return []byte(s), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// LoadCookies restores the last persisted bundle and reports whether one was found.
func (a *App) LoadCookies() bool {
	bundle, err := credential.Load(where.Cookies())
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("no persisted cookies")
	case err != nil:
		log.WithError(err).Warn("persisted cookies are unreadable")
	case bundle.Empty():
		log.Warn("persisted cookie file holds no cookies")
	default:
		a.Store.Set(bundle)
		log.Infof("loaded %d persisted cookies captured %s ago", len(bundle.Cookies), bundle.Age(time.Now()).Round(time.Second))
		return true
	}

	return false
}

// Bootstrap populates the store at startup, from disk or else with a refresh.
// A failed refresh is logged and the service starts without a session.
func (a *App) Bootstrap(ctx context.Context) {
	if a.LoadCookies() {
		return
	}

	if a.Refresher == nil {
		return
	}

	if _, err := a.Refresher.Refresh(ctx, a.Store.Generation()); err != nil {
		log.WithError(err).Warn("initial session refresh failed, starting without a session")
	}
}

// Server builds the HTTP surface.
func (a *App) Server() *server.Server {
	return server.New(server.Options{
		Address:       viper.GetString(key.ServerAddress),
		APIKey:        viper.GetString(key.ServerAPIKey),
		RateLimit:     viper.GetFloat64(key.ServerRateLimit),
		RateBurst:     viper.GetInt(key.ServerRateBurst),
		RequireSigned: viper.GetBool(key.ServerRequireSigned),
		SignedURLTTL:  viper.GetDuration(key.StorageSignedURLTTL),
		Version:       constant.Version,
	}, a.Pipeline, a.Catalog, a.Storage, a.Debug)
}

// Serve runs the background loops and the HTTP server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	a.Bootstrap(ctx)

	if viper.GetBool(key.ToolSelfUpdate) {
		if err := a.Native.Update(ctx); err != nil {
			log.WithError(err).Warn("downloader tool self-update failed")
		}
	}

	go a.Sweeper.Run(ctx)
	go a.Monitor.Run(ctx)

	log.Infof("strategies: %s", strings.Join(a.Orchestrator.Strategies(), ", "))
	return a.Server().Run(ctx)
}

// Debug reports process health without exposing cookie values.
func (a *App) Debug() gin.H {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	toolVersion, err := a.Native.Version(ctx)
	if err != nil {
		toolVersion = "unavailable: " + err.Error()
	}

	cookies := gin.H{"present": false}
	if b, ok := a.Store.Get().Get(); ok {
		cookies = gin.H{
			"present":      true,
			"count":        len(b.Cookies),
			"age":          b.Age(time.Now()).Round(time.Second).String(),
			"failureCount": b.FailureCount,
			"coolingDown":  a.Store.CoolingDown(),
			"domains":      lo.Uniq(lo.Map(b.Cookies, func(c credential.Cookie, _ int) string { return c.Domain })),
		}
	}

	last := a.Monitor.Last()

	return gin.H{
		"version":    constant.Version,
		"uptime":     time.Since(a.started).Round(time.Second).String(),
		"tool":       toolVersion,
		"strategies": a.Orchestrator.Strategies(),
		"cookies":    cookies,
		"monitor":    gin.H{"at": last.At, "outcome": last.Outcome, "detail": last.Detail},
		"storage": gin.H{
			"videos":     where.Videos(),
			"thumbnails": where.Thumbnails(),
			"temp":       where.Temp(),
		},
	}
}
