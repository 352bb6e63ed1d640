package session

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodBrowser launches headless Chromium sessions through go-rod.
type RodBrowser struct {
	// Bin is the browser executable; empty lets the launcher download one.
	Bin      string
	Headless bool
	// Timeout bounds every individual page operation.
	Timeout time.Duration
}

// Launch starts a fresh browser process with an empty profile.
func (b *RodBrowser) Launch(ctx context.Context, userAgent string) (Driver, error) {
	l := launcher.New().
		Context(ctx).
		Headless(b.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("user-agent", userAgent)

	if b.Bin != "" {
		l = l.Bin(b.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	return &rodDriver{
		launcher: l,
		browser:  browser,
		page:     page,
		timeout:  b.Timeout,
	}, nil
}

type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
}

func (d *rodDriver) bounded(ctx context.Context) *rod.Page {
	p := d.page.Context(ctx)
	if d.timeout > 0 {
		p = p.Timeout(d.timeout)
	}
	return p
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	p := d.bounded(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (d *rodDriver) WaitFor(ctx context.Context, selector string) error {
	el, err := d.bounded(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (d *rodDriver) TypeInto(ctx context.Context, selector, text string) error {
	el, err := d.bounded(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (d *rodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.bounded(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDriver) PageSource(ctx context.Context) (string, error) {
	return d.bounded(ctx).HTML()
}

func (d *rodDriver) ReadCookies(ctx context.Context) ([]RawCookie, error) {
	cookies, err := d.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, err
	}

	raw := make([]RawCookie, 0, len(cookies))
	for _, c := range cookies {
		raw = append(raw, RawCookie{
			Domain:   c.Domain,
			Path:     c.Path,
			Name:     c.Name,
			Value:    c.Value,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			Expires:  float64(c.Expires),
		})
	}
	return raw, nil
}

// Close tears down the browser process and its temporary profile.
func (d *rodDriver) Close() error {
	err := d.browser.Close()
	d.launcher.Kill()
	d.launcher.Cleanup()
	return err
}
