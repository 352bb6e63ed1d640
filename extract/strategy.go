// Package extract turns a source URL into a playable media reference.
//
// Several interchangeable strategies are provided: the external downloader
// tool, third-party conversion services and an authenticated replay of a
// media URL resolved earlier. Each one classifies its failures so the
// orchestrator can decide whether to refresh credentials, retry or move on.
package extract

import (
	"context"

	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/source"
	"github.com/samber/mo"
)

// Input is everything a strategy gets to work with.
type Input struct {
	URL         string
	SourceID    string
	Credentials mo.Option[credential.Bundle]
	// Leads are media URLs earlier strategies resolved but could not use.
	Leads []Lead
}

// Lead is a resolved media URL whose bytes could not be fetched anonymously.
type Lead struct {
	Strategy     string
	MediaURL     string
	Title        string
	ThumbnailURL mo.Option[string]
	Quality      int
}

// Strategy resolves media for a source.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) (*source.ResolvedMedia, error)
}
