// Package acquire runs the extraction strategies for a source in priority
// order, refreshing the session when a strategy reports an auth failure.
package acquire

import (
	"context"
	"time"

	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/extract"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/source"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Refresher mints a new credential bundle. seen is the store generation the
// failed attempt used.
type Refresher interface {
	Refresh(ctx context.Context, seen uint64) (credential.Bundle, error)
}

// Finder looks up an already stored artifact. Only artifacts with a
// non-empty video file are reported.
type Finder interface {
	Find(sourceID string) mo.Option[source.StoredArtifact]
}

// Options tune the orchestrator.
type Options struct {
	// MaxFailures consecutive auth failures put the store into cooldown.
	MaxFailures int
	Cooldown    time.Duration
	// TransientRetries is how often a transient failure is retried in place.
	TransientRetries int
}

// Orchestrator tries strategies in order until one resolves the media.
type Orchestrator struct {
	strategies []extract.Strategy
	store      *credential.Store
	refresher  Refresher
	finder     Finder
	opts       Options
}

// NewOrchestrator wires an Orchestrator. finder may be nil to disable the stored artifact lookup.
func NewOrchestrator(strategies []extract.Strategy, store *credential.Store, refresher Refresher, finder Finder, opts Options) *Orchestrator {
	return &Orchestrator{
		strategies: strategies,
		store:      store,
		refresher:  refresher,
		finder:     finder,
		opts:       opts,
	}
}

// Strategies returns the strategy names in the order they are tried.
func (o *Orchestrator) Strategies() []string {
	return lo.Map(o.strategies, func(s extract.Strategy, _ int) string {
		return s.Name()
	})
}

// Acquire resolves req. A stored artifact short-circuits without any
// strategy call. Otherwise the first strategy to succeed wins; an auth
// failure gets one refresh and one retry of the same strategy.
func (o *Orchestrator) Acquire(ctx context.Context, req source.Request) (*source.ResolvedMedia, error) {
	if artifact, ok := o.stored(req.SourceID); ok {
		log.WithFields(log.Fields{"source_id": req.SourceID}).Info("already stored")
		return &source.ResolvedMedia{
			SourceID: artifact.SourceID,
			Title:    artifact.Title,
			MediaURL: artifact.VideoPath,
			Quality:  artifact.Quality,
			Strategy: "stored",
			Artifact: &artifact,
		}, nil
	}

	var (
		attempts []Attempt
		leads    []extract.Lead
	)

	for _, strategy := range o.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		media, attempt := o.run(ctx, strategy, req, &leads)
		if media != nil {
			return media, nil
		}

		attempts = append(attempts, attempt)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return nil, &AcquisitionError{SourceID: req.SourceID, Attempts: attempts}
}

func (o *Orchestrator) stored(sourceID string) (source.StoredArtifact, bool) {
	if o.finder == nil {
		return source.StoredArtifact{}, false
	}
	return o.finder.Find(sourceID).Get()
}

// run calls one strategy at most twice: once with the current bundle and,
// after an auth failure and a successful refresh, once with the new one.
func (o *Orchestrator) run(ctx context.Context, strategy extract.Strategy, req source.Request, leads *[]extract.Lead) (*source.ResolvedMedia, Attempt) {
	logger := log.WithFields(log.Fields{"source_id": req.SourceID, "strategy": strategy.Name()})

	bundle, generation := o.store.Snapshot()
	in := extract.Input{
		URL:         req.URL,
		SourceID:    req.SourceID,
		Credentials: bundle,
		Leads:       *leads,
	}

	media, failure := o.call(ctx, strategy, in)
	if failure == nil {
		o.succeeded(strategy.Name(), media, bundle, logger)
		return media, Attempt{}
	}

	collect(leads, failure)
	logger.WithFields(log.Fields{"kind": failure.Kind}).Infof("attempt failed: %s", failure)

	if failure.Kind != extract.AuthRequired {
		return nil, Attempt{Strategy: strategy.Name(), Err: failure}
	}

	if o.authFailed(logger) {
		return nil, Attempt{Strategy: strategy.Name(), Err: failure}
	}

	if o.refresher == nil {
		return nil, Attempt{Strategy: strategy.Name(), Err: failure}
	}

	fresh, err := o.refresher.Refresh(ctx, generation)
	if err != nil {
		logger.WithError(err).Warn("session refresh failed")
		return nil, Attempt{Strategy: strategy.Name(), Err: failure, Refresh: err}
	}

	in.Credentials = mo.Some(fresh)
	in.Leads = *leads

	media, err = strategy.Extract(ctx, in)
	if err == nil {
		o.succeeded(strategy.Name(), media, in.Credentials, logger)
		return media, Attempt{}
	}

	failure = extract.AsError(err)
	collect(leads, failure)
	logger.WithFields(log.Fields{"kind": failure.Kind}).Infof("retry after refresh failed: %s", failure)

	if failure.Kind == extract.AuthRequired {
		o.authFailed(logger)
	}

	return nil, Attempt{Strategy: strategy.Name(), Err: failure}
}

// call invokes strategy, retrying transient failures in place.
func (o *Orchestrator) call(ctx context.Context, strategy extract.Strategy, in extract.Input) (*source.ResolvedMedia, *extract.Error) {
	for try := 0; ; try++ {
		media, err := strategy.Extract(ctx, in)
		if err == nil {
			return media, nil
		}

		failure := extract.AsError(err)
		if failure.Kind != extract.Transient || try >= o.opts.TransientRetries || ctx.Err() != nil {
			return nil, failure
		}

		log.WithFields(log.Fields{"source_id": in.SourceID, "strategy": strategy.Name()}).
			Debugf("retrying transient failure: %s", failure)
	}
}

// authFailed records an auth failure and reports whether refreshes are suppressed.
func (o *Orchestrator) authFailed(logger *log.Entry) bool {
	count := o.store.RecordFailure()
	if o.opts.MaxFailures > 0 && count > o.opts.MaxFailures && !o.store.CoolingDown() {
		logger.Warnf("%d consecutive auth failures, suppressing refreshes for %s", count, o.opts.Cooldown)
		o.store.StartCooldown(o.opts.Cooldown)
	}

	return o.store.CoolingDown()
}

func (o *Orchestrator) succeeded(name string, media *source.ResolvedMedia, used mo.Option[credential.Bundle], logger *log.Entry) {
	if used.IsPresent() {
		o.store.RecordSuccess()
	}

	if media.Strategy == "" {
		media.Strategy = name
	}

	logger.WithFields(log.Fields{"quality": media.Quality}).Info("media resolved")
}

func collect(leads *[]extract.Lead, failure *extract.Error) {
	if lead, ok := failure.Lead.Get(); ok {
		*leads = append(*leads, lead)
	}
}
