package data

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mutex      sync.Mutex
	feedsByURL map[string]*Feed
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feedsByURL: make(map[string]*Feed)}
}

func copyFeed(src *Feed) *Feed {
	feed := *src
	feed.Items = make([]ParsedItem, len(src.Items))
	copy(feed.Items, src.Items)
	return &feed
}

func (s *MemoryStore) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	feed, ok := s.feedsByURL[url]
	if !ok {
		return nil, ErrNotFound
	}

	return copyFeed(feed), nil
}

func (s *MemoryStore) UpdateFeedWithFetchSuccess(ctx context.Context, url string, update *ParsedFeed, etag string, fetchTime time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	feed, ok := s.feedsByURL[url]
	if !ok {
		feed = &Feed{URL: url}
		s.feedsByURL[url] = feed
	}

	feed.Name = update.Name
	feed.ETag = etag
	feed.LastFetchTime = fetchTime
	feed.LastFailure = ""
	feed.LastFailureTime = time.Time{}
	feed.FailureCount = 0
	feed.Items = make([]ParsedItem, len(update.Items))
	copy(feed.Items, update.Items)

	return nil
}

func (s *MemoryStore) UpdateFeedWithFetchUnchanged(ctx context.Context, url string, fetchTime time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	feed, ok := s.feedsByURL[url]
	if !ok {
		return ErrNotFound
	}

	feed.LastFetchTime = fetchTime
	feed.LastFailure = ""
	feed.LastFailureTime = time.Time{}
	feed.FailureCount = 0

	return nil
}

func (s *MemoryStore) UpdateFeedWithFetchFailure(ctx context.Context, url string, failure string, fetchTime time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	feed, ok := s.feedsByURL[url]
	if !ok {
		feed = &Feed{URL: url}
		s.feedsByURL[url] = feed
	}

	feed.LastFetchTime = fetchTime
	feed.LastFailure = failure
	feed.LastFailureTime = fetchTime
	feed.FailureCount++

	return nil
}
