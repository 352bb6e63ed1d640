package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/offtube/offtube/auth"
	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/network"
	"golang.org/x/sync/singleflight"
)

// Login page selectors.
const (
	selectorEmail     = "#identifierId"
	selectorEmailNext = "#identifierNext"
	selectorPassword  = `input[type="password"]`
	selectorPassNext  = "#passwordNext"
)

// Options tune the refresh flow.
type Options struct {
	LoginURL         string
	TargetURL        string
	ChallengeMarkers []string
	Domains          []string
	MaxAttempts      int
	Cooldown         time.Duration
	Settle           time.Duration
	// CookiePath is where successful bundles are persisted. Empty disables persistence.
	CookiePath string
}

// Refresher mints new bundles and writes them to the credential store.
// Concurrent callers share a single in-flight refresh.
type Refresher struct {
	store    *credential.Store
	browser  Browser
	fallback FallbackLogin
	identity func() (auth.Identity, error)
	opts     Options
	now      func() time.Time

	group singleflight.Group

	mu            sync.Mutex
	attempts      int
	cooldownUntil time.Time
}

// NewRefresher wires a Refresher. browser or fallback may be nil to disable that path.
func NewRefresher(store *credential.Store, browser Browser, fallback FallbackLogin, opts Options) *Refresher {
	return &Refresher{
		store:    store,
		browser:  browser,
		fallback: fallback,
		identity: auth.Lookup,
		opts:     opts,
		now:      time.Now,
	}
}

// Refresh mints a new bundle. seen is the store generation the caller was
// using when it hit an auth failure; if the store has already moved past it,
// the current bundle is returned without logging in again.
func (r *Refresher) Refresh(ctx context.Context, seen uint64) (credential.Bundle, error) {
	if b, ok := r.newer(seen); ok {
		return b, nil
	}

	ch := r.group.DoChan("refresh", func() (any, error) {
		if b, ok := r.newer(seen); ok {
			return b, nil
		}

		// the flight outlives any single caller; browser waits bound it instead
		return r.run(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return credential.Bundle{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return credential.Bundle{}, res.Err
		}
		return res.Val.(credential.Bundle), nil
	}
}

func (r *Refresher) newer(seen uint64) (credential.Bundle, bool) {
	b, gen := r.store.Snapshot()
	if gen > seen && b.IsPresent() {
		return b.MustGet(), true
	}
	return credential.Bundle{}, false
}

type state int

const (
	stateStart state = iota
	stateCooldown
	stateBrowserLogin
	stateHarvest
	stateFallbackLogin
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateCooldown:
		return "cooldown"
	case stateBrowserLogin:
		return "browser_login"
	case stateHarvest:
		return "harvest"
	case stateFallbackLogin:
		return "fallback_login"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

func (r *Refresher) run(ctx context.Context) (credential.Bundle, error) {
	var (
		st        = stateStart
		userAgent = network.RandomUserAgent()
		id        auth.Identity
		raw       []RawCookie
		bundle    credential.Bundle
		err       error
	)

	for {
		log.WithFields(log.Fields{"state": st.String()}).Debug("session refresh")

		switch st {
		case stateStart:
			r.mu.Lock()
			if r.now().Before(r.cooldownUntil) {
				until := r.cooldownUntil
				r.mu.Unlock()
				return credential.Bundle{}, &RefreshError{Reason: Exhausted, Err: errors.New("cooling down until " + until.Format(time.RFC3339))}
			}
			r.attempts++
			over := r.opts.MaxAttempts > 0 && r.attempts > r.opts.MaxAttempts
			r.mu.Unlock()

			if over {
				st = stateCooldown
				continue
			}

			if id, err = r.identity(); err != nil {
				return credential.Bundle{}, &RefreshError{Reason: Unavailable, Err: err}
			}
			st = stateBrowserLogin

		case stateCooldown:
			r.mu.Lock()
			r.cooldownUntil = r.now().Add(r.opts.Cooldown)
			r.attempts = 0
			r.mu.Unlock()

			log.Warnf("session refresh attempts exhausted, cooling down for %s", r.opts.Cooldown)
			return credential.Bundle{}, &RefreshError{Reason: Exhausted}

		case stateBrowserLogin:
			raw, err = r.browserLogin(ctx, id, userAgent)
			switch {
			case errors.Is(err, errChallenge):
				log.Warn("browser login hit a verification challenge, falling back to HTTP login")
				st = stateFallbackLogin
			case err != nil:
				log.WithError(err).Warn("browser login failed, falling back to HTTP login")
				st = stateFallbackLogin
			default:
				st = stateHarvest
			}

		case stateHarvest:
			cookies := Harvest(raw, r.opts.Domains)
			if len(cookies) == 0 {
				log.Warn("browser session produced no usable cookies")
				st = stateFallbackLogin
				continue
			}

			bundle = credential.Bundle{Cookies: cookies, CapturedAt: r.now()}
			st = stateDone

		case stateFallbackLogin:
			if r.fallback == nil {
				return credential.Bundle{}, failure(errors.New("no fallback login configured"))
			}

			raw, err = r.fallback.Login(ctx, id, userAgent)
			if err != nil {
				return credential.Bundle{}, failure(err)
			}

			cookies := Harvest(raw, r.opts.Domains)
			if len(cookies) == 0 {
				return credential.Bundle{}, failure(errNoCookies)
			}

			bundle = credential.Bundle{Cookies: cookies, CapturedAt: r.now()}
			st = stateDone

		case stateDone:
			r.store.Set(bundle)

			if r.opts.CookiePath != "" {
				if err := credential.Save(r.opts.CookiePath, bundle); err != nil {
					log.WithError(err).Warn("could not persist refreshed cookies")
				}
			}

			r.mu.Lock()
			r.attempts = 0
			r.mu.Unlock()

			log.Infof("session refreshed with %d cookies", len(bundle.Cookies))
			return bundle, nil
		}
	}
}

// failure reports a fallback failure. A fallback that itself hits a
// verification wall is challenged; anything else is unavailable.
func failure(err error) error {
	if errors.Is(err, errChallenge) {
		return &RefreshError{Reason: Challenged, Err: err}
	}
	return &RefreshError{Reason: Unavailable, Err: err}
}

// browserLogin drives the email then password flow and reads the resulting cookie jar.
// The browser is always closed before returning.
func (r *Refresher) browserLogin(ctx context.Context, id auth.Identity, userAgent string) (cookies []RawCookie, err error) {
	if r.browser == nil {
		return nil, errNoBrowser
	}

	drv, err := r.browser.Launch(ctx, userAgent)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil {
			log.WithError(cerr).Warn("closing browser")
		}
	}()

	if err = drv.Navigate(ctx, r.opts.LoginURL); err != nil {
		return nil, err
	}

	if err = drv.WaitFor(ctx, selectorEmail); err != nil {
		return nil, err
	}

	if err = drv.TypeInto(ctx, selectorEmail, id.Email); err != nil {
		return nil, err
	}

	if err = r.submit(ctx, drv, selectorEmailNext); err != nil {
		return nil, err
	}

	if err = drv.WaitFor(ctx, selectorPassword); err != nil {
		if r.challenged(ctx, drv) {
			return nil, errChallenge
		}
		return nil, err
	}

	if err = drv.TypeInto(ctx, selectorPassword, id.Password); err != nil {
		return nil, err
	}

	if err = r.submit(ctx, drv, selectorPassNext); err != nil {
		return nil, err
	}

	if err = drv.Navigate(ctx, r.opts.TargetURL); err != nil {
		return nil, err
	}

	if err = sleep(ctx, r.opts.Settle); err != nil {
		return nil, err
	}

	return drv.ReadCookies(ctx)
}

// submit clicks selector, lets the page settle and checks for a verification challenge.
func (r *Refresher) submit(ctx context.Context, drv Driver, selector string) error {
	if err := drv.Click(ctx, selector); err != nil {
		return err
	}

	if err := sleep(ctx, r.opts.Settle); err != nil {
		return err
	}

	if r.challenged(ctx, drv) {
		return errChallenge
	}

	return nil
}

func (r *Refresher) challenged(ctx context.Context, drv Driver) bool {
	html, err := drv.PageSource(ctx)
	if err != nil {
		return false
	}
	return containsMarker(html, r.opts.ChallengeMarkers)
}

func containsMarker(text string, markers []string) bool {
	text = strings.ToLower(text)
	for _, m := range markers {
		if m != "" && strings.Contains(text, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
