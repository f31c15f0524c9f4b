package data

import (
	"time"
)

type ParsedItem struct {
	Title           string
	URL             string
	Summary         string
	PublicationTime time.Time
}

type ParsedFeed struct {
	Name  string
	Items []ParsedItem
}

// IsValid reports whether the feed looks like it was actually parsed from a
// feed document instead of some arbitrary XML.
func (f *ParsedFeed) IsValid() bool {
	if f.Name != "" {
		return true
	}

	for _, item := range f.Items {
		if item.Title != "" || item.URL != "" {
			return true
		}
	}

	return false
}

// Feed is the cached result of the most recent fetches of a feed URL.
type Feed struct {
	URL             string
	Name            string
	ETag            string
	LastFetchTime   time.Time
	LastFailure     string
	LastFailureTime time.Time
	FailureCount    int32
	Items           []ParsedItem
}

// Parsed returns the cached feed content in the same shape a fresh fetch produces.
func (f *Feed) Parsed() *ParsedFeed {
	items := make([]ParsedItem, len(f.Items))
	copy(items, f.Items)
	return &ParsedFeed{Name: f.Name, Items: items}
}
