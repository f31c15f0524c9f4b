package backend

import (
	"bytes"
	"context"
	"sync"

	"github.com/jackc/feedreader/backend/data"
	log "gopkg.in/inconshreveable/log15.v2"
)

type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*data.ParsedFeed, error)
}

// FeedLoader fetches a configured feed and replaces the container content with its entries. Loads are serialized so
// the container always holds the result of exactly one completed load.
type FeedLoader struct {
	mutex     sync.Mutex
	feeds     []FeedDescriptor
	container *Container
	fetcher   FeedFetcher
	logger    log.Logger
}

func NewFeedLoader(feeds []FeedDescriptor, container *Container, fetcher FeedFetcher, logger log.Logger) *FeedLoader {
	return &FeedLoader{
		feeds:     feeds,
		container: container,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// Render loads feed index into the container and returns the rendered content. On error the container is left
// unchanged.
func (l *FeedLoader) Render(ctx context.Context, index int) (string, error) {
	if index < 0 || index >= len(l.feeds) {
		return "", &IndexError{Index: index, Len: len(l.feeds)}
	}
	descriptor := l.feeds[index]

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	feed, err := l.fetcher.Fetch(ctx, descriptor.URL)
	if err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	err = RenderEntries(buf, feed)
	if err != nil {
		return "", err
	}

	content := buf.String()
	l.container.Replace(content)
	l.logger.Debug("Rendered feed", "index", index, "name", descriptor.Name, "entries", len(feed.Items))

	return content, nil
}

// Load starts loading feed index. The returned channel receives exactly one value, nil on success, and is then
// closed.
func (l *FeedLoader) Load(ctx context.Context, index int) <-chan error {
	done := make(chan error, 1)

	go func() {
		_, err := l.Render(ctx, index)
		done <- err
		close(done)
	}()

	return done
}

// LoadFeed loads feed index and calls onComplete exactly once when the load finishes, whether or not it succeeded.
// Failures are logged.
func (l *FeedLoader) LoadFeed(index int, onComplete func()) {
	done := l.Load(context.Background(), index)

	go func() {
		err := <-done
		if err != nil {
			l.logger.Error("loadFeed failed", "index", index, "error", err)
		}
		if onComplete != nil {
			onComplete()
		}
	}()
}
