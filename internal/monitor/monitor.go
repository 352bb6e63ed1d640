// Package monitor keeps the session healthy outside of the request path.
//
// On every tick it checks the age of the current cookie bundle. A bundle
// past its maximum age is exercised with a cheap probe extraction against
// a known-good source, and an auth failure triggers a proactive refresh.
package monitor

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/extract"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
)

// Refresher mints a new bundle.
type Refresher interface {
	Refresh(ctx context.Context, seen uint64) (credential.Bundle, error)
}

// Outcome of a single check.
type Outcome string

const (
	Healthy   Outcome = "healthy"
	Skipped   Outcome = "skipped"
	Probed    Outcome = "probed"
	Refreshed Outcome = "refreshed"
	Failed    Outcome = "failed"
)

// Report describes the last check.
type Report struct {
	At      time.Time
	Outcome Outcome
	Detail  string
}

// Monitor probes and refreshes the session on a fixed interval.
type Monitor struct {
	Store     *credential.Store
	Refresher Refresher
	Probe     extract.Strategy
	ProbeURL  string
	MaxAge    time.Duration
	Interval  time.Duration
	// Timeout bounds a single check.
	Timeout time.Duration

	now func() time.Time

	mu   sync.Mutex
	last Report
}

func New(store *credential.Store, refresher Refresher, probe extract.Strategy, probeURL string, maxAge, interval time.Duration) *Monitor {
	return &Monitor{
		Store:     store,
		Refresher: refresher,
		Probe:     probe,
		ProbeURL:  probeURL,
		MaxAge:    maxAge,
		Interval:  interval,
		Timeout:   5 * time.Minute,
		now:       time.Now,
	}
}

// Run checks every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Check(ctx); err != nil {
				log.WithError(err).Warn("cookie health check failed")
			}
		}
	}
}

// Last returns the report of the most recent check.
func (m *Monitor) Last() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Monitor) report(outcome Outcome, detail string) {
	m.mu.Lock()
	m.last = Report{At: m.now(), Outcome: outcome, Detail: detail}
	m.mu.Unlock()

	log.WithFields(log.Fields{"outcome": outcome}).Debugf("cookie health: %s", detail)
}

// Check runs one health check.
func (m *Monitor) Check(ctx context.Context) error {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	bundle, generation := m.Store.Snapshot()
	if b, ok := bundle.Get(); ok && b.Age(m.now()) < m.MaxAge {
		m.report(Healthy, "bundle age "+b.Age(m.now()).Round(time.Second).String())
		return nil
	}

	if m.Store.CoolingDown() {
		m.report(Skipped, "refreshes are cooling down")
		return nil
	}

	in := extract.Input{URL: m.ProbeURL, Credentials: bundle}
	if u, err := url.Parse(m.ProbeURL); err == nil {
		in.SourceID = source.DeriveID(u)
	}

	_, err := m.Probe.Extract(ctx, in)
	if err == nil {
		if bundle.IsPresent() {
			m.Store.RecordSuccess()
		}
		m.report(Probed, "probe succeeded")
		return nil
	}

	if extract.KindOf(err) != extract.AuthRequired {
		m.report(Probed, "probe failed without an auth problem: "+err.Error())
		return nil
	}

	fresh, err := m.Refresher.Refresh(ctx, generation)
	if err != nil {
		m.report(Failed, err.Error())
		return err
	}

	m.report(Refreshed, "refreshed with "+strconv.Itoa(len(fresh.Cookies))+" cookies")
	return nil
}
