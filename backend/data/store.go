package data

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Store caches fetch results per feed URL. A 304 response is served from the
// cached items.
type Store interface {
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	UpdateFeedWithFetchSuccess(ctx context.Context, url string, update *ParsedFeed, etag string, fetchTime time.Time) error
	UpdateFeedWithFetchUnchanged(ctx context.Context, url string, fetchTime time.Time) error
	UpdateFeedWithFetchFailure(ctx context.Context, url string, failure string, fetchTime time.Time) error
}
