package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/feedreader/backend/data"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	maxFeedBodySize  = 10 << 20
	maxSummaryLength = 300
)

// Fetcher retrieves and parses feeds. When a Store is available it sends conditional requests and serves a 304
// response from the cached items.
type Fetcher struct {
	client *http.Client
	store  data.Store
	logger log.Logger
}

func NewFetcher(config FetchConfig, store data.Store, logger log.Logger) *Fetcher {
	if store == nil {
		store = data.NewMemoryStore()
	}

	return &Fetcher{
		client: &http.Client{Timeout: config.Timeout},
		store:  store,
		logger: logger,
	}
}

type rawFeed struct {
	url         string
	body        []byte
	etag        string
	contentType string
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string, etag string) (*rawFeed, error) {
	feed := &rawFeed{url: feedURL}

	req, err := http.NewRequestWithContext(ctx, "GET", feed.url, nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Add("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		feed.body, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
		if err != nil {
			return nil, fmt.Errorf("Unable to read response body: %v", err)
		}

		feed.etag = resp.Header.Get("Etag")
		feed.contentType = resp.Header.Get("Content-Type")

		return feed, nil
	case 304:
		return nil, nil
	default:
		return nil, fmt.Errorf("Bad HTTP response: %s", resp.Status)
	}
}

// Fetch returns the current content of the feed at feedURL. Failures are recorded in the store and returned as a
// *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*data.ParsedFeed, error) {
	cached, err := f.store.GetFeedByURL(ctx, feedURL)
	if err != nil {
		if !errors.Is(err, data.ErrNotFound) {
			f.logger.Warn("GetFeedByURL failed", "url", feedURL, "error", err)
		}
		cached = nil
	}

	var etag string
	if cached != nil && cached.LastFailure == "" {
		etag = cached.ETag
	}

	rawFeed, err := f.fetchFeed(ctx, feedURL, etag)
	if err != nil {
		f.logger.Error("fetchFeed failed", "url", feedURL, "error", err)
		return nil, f.recordFailure(ctx, feedURL, err)
	}

	// 304 unchanged
	if rawFeed == nil {
		if cached == nil {
			return nil, f.recordFailure(ctx, feedURL, errors.New("304 response without cached feed"))
		}

		f.logger.Info("fetchFeed 304 unchanged", "url", feedURL)
		err = f.store.UpdateFeedWithFetchUnchanged(ctx, feedURL, time.Now())
		if err != nil {
			f.logger.Error("UpdateFeedWithFetchUnchanged failed", "url", feedURL, "error", err)
		}
		return cached.Parsed(), nil
	}

	feed, err := parseFeed(rawFeed.body, rawFeed.contentType)
	if err != nil {
		f.logger.Error("parseFeed failed", "url", feedURL, "error", err)
		return nil, f.recordFailure(ctx, feedURL, fmt.Errorf("Unable to parse feed: %w", err))
	}

	f.logger.Info("fetchFeed succeeded", "url", feedURL, "items", len(feed.Items))
	err = f.store.UpdateFeedWithFetchSuccess(ctx, feedURL, feed, rawFeed.etag, time.Now())
	if err != nil {
		f.logger.Error("UpdateFeedWithFetchSuccess failed", "url", feedURL, "error", err)
	}

	return feed, nil
}

// recordFailure is skipped when ctx is done. A caller that went away says nothing about the feed.
func (f *Fetcher) recordFailure(ctx context.Context, feedURL string, cause error) error {
	if ctx.Err() != nil {
		return &FetchError{URL: feedURL, Err: cause}
	}

	err := f.store.UpdateFeedWithFetchFailure(context.WithoutCancel(ctx), feedURL, cause.Error(), time.Now())
	if err != nil {
		f.logger.Error("UpdateFeedWithFetchFailure failed", "url", feedURL, "error", err)
	}

	return &FetchError{URL: feedURL, Err: cause}
}

var xmlEncodingDeclRegexp = regexp.MustCompile(`^(\s*<\?xml[^>]*?encoding=)["'][^"']*["']`)

// decodeBody converts body to UTF-8 when the Content-Type header names another charset. The header takes precedence
// over the XML declaration, so the declaration is rewritten to keep the parser from decoding a second time.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}

	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	if label == "" {
		return body, nil
	}

	decoded := body
	if label != "utf-8" && label != "utf8" {
		r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		decoded, err = io.ReadAll(r)
		if err != nil {
			return nil, err
		}
	}

	return xmlEncodingDeclRegexp.ReplaceAll(decoded, []byte(`${1}"UTF-8"`)), nil
}

// parseFeed uses a new gofeed.Parser per call as a Parser lazily initializes its translators and is not safe for
// concurrent use.
func parseFeed(body []byte, contentType string) (*data.ParsedFeed, error) {
	body, err := decodeBody(body, contentType)
	if err != nil {
		return nil, err
	}

	doc, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var feed data.ParsedFeed
	if doc.Title != "" {
		feed.Name = strings.TrimSpace(doc.Title)
	} else {
		feed.Name = strings.TrimSpace(doc.Description)
	}

	feed.Items = make([]data.ParsedItem, len(doc.Items))
	for i, item := range doc.Items {
		feed.Items[i].URL = item.Link
		feed.Items[i].Title = strings.TrimSpace(item.Title)

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		feed.Items[i].Summary = summarize(summary)

		switch {
		case item.PublishedParsed != nil:
			feed.Items[i].PublicationTime = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			feed.Items[i].PublicationTime = *item.UpdatedParsed
		case item.Published != "":
			feed.Items[i].PublicationTime, _ = parseTime(item.Published)
		case item.Updated != "":
			feed.Items[i].PublicationTime, _ = parseTime(item.Updated)
		}
	}

	if !feed.IsValid() {
		return nil, errors.New("Invalid feed")
	}

	return &feed, nil
}

var summaryPolicy = bluemonday.StrictPolicy()

// summarize reduces an item description to a short plain text snippet.
func summarize(s string) string {
	s = summaryPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) > maxSummaryLength {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxSummaryLength-1])) + "…"
	}

	return s
}

// Try multiple time formats one after another until one works or all fail
func parseTime(value string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05Z",
		time.RFC822,
		"02 Jan 2006 15:04 MST",           // RFC822 with 4 digit year
		"02 Jan 2006 15:04:05 MST",        // RFC822 with 4 digit year and seconds
		"Mon, _2 Jan 2006 15:04:05 MST",   // RFC1123 with 1-2 digit days
		"Mon, _2 Jan 2006 15:04:05 -0700", // RFC1123 with numeric time zone and with 1-2 digit days
		"Mon, _2 Jan 2006",
		"2006-01-02",
	}
	for _, f := range formats {
		t, err := time.Parse(f, strings.TrimSpace(value))
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.New("Unable to parse time")
}
