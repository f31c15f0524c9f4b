package backend

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	log "gopkg.in/inconshreveable/log15.v2"
)

// ViewState is the observable state of the reader page.
type ViewState interface {
	CurrentVisibility() Visibility
	RenderedContent() string
	EntryCount() int
}

// Reader holds the state of one reader page: the configured feeds, the feed container, and the menu.
type Reader struct {
	Feeds     []FeedDescriptor
	Container *Container
	Menu      *Menu
	Loader    *FeedLoader

	fetcher FeedFetcher
	logger  log.Logger
}

var _ ViewState = (*Reader)(nil)

func NewReader(feeds []FeedDescriptor, fetcher FeedFetcher, logger log.Logger) (*Reader, error) {
	err := ValidateFeeds(feeds)
	if err != nil {
		return nil, err
	}

	feeds = append([]FeedDescriptor(nil), feeds...)
	container := &Container{}

	return &Reader{
		Feeds:     feeds,
		Container: container,
		Menu:      &Menu{},
		Loader:    NewFeedLoader(feeds, container, fetcher, logger.New("module", "loader")),
		fetcher:   fetcher,
		logger:    logger,
	}, nil
}

func (r *Reader) CurrentVisibility() Visibility {
	return r.Menu.Visibility()
}

func (r *Reader) RenderedContent() string {
	return r.Container.HTML()
}

func (r *Reader) EntryCount() int {
	return r.Container.EntryCount()
}

func (r *Reader) ToggleMenu() Visibility {
	return r.Menu.Toggle()
}

// Preload fetches every configured feed without rendering, at most limit at a time. All failures are logged and
// returned joined.
func (r *Reader) Preload(ctx context.Context, limit int) error {
	errs := make([]error, len(r.Feeds))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, f := range r.Feeds {
		i, f := i, f
		g.Go(func() error {
			feed, err := r.fetcher.Fetch(ctx, f.URL)
			if err != nil {
				r.logger.Warn("Preload failed", "index", i, "name", f.Name, "error", err)
				errs[i] = err
				return nil
			}
			r.logger.Info("Preloaded feed", "index", i, "name", f.Name, "items", len(feed.Items))
			return nil
		})
	}
	g.Wait()

	return errors.Join(errs...)
}
