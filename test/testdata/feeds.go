package testdata

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/feeds"
	"github.com/stretchr/testify/require"
)

// NewFeed builds a feed named name with itemCount items. Item titles and links include name so different feeds never
// render the same entries.
func NewFeed(name string, itemCount int) *feeds.Feed {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &feeds.Feed{
		Title:       name,
		Link:        &feeds.Link{Href: "http://example.com/" + name},
		Description: "Posts from " + name,
		Created:     published,
	}

	for i := 0; i < itemCount; i++ {
		link := fmt.Sprintf("http://example.com/%s/posts/%d", name, i)
		feed.Add(&feeds.Item{
			Id:          link,
			Title:       fmt.Sprintf("%s post %d", name, i),
			Link:        &feeds.Link{Href: link},
			Description: fmt.Sprintf("<p>Summary of <b>%s</b> post %d</p>", name, i),
			Created:     published.Add(-time.Duration(i) * time.Hour),
		})
	}

	return feed
}

type feedResponse struct {
	status      int
	contentType string
	body        []byte
	etag        string
}

// FeedServer is an httptest.Server that serves registered feed documents. Responses carry an ETag and a matching
// If-None-Match request gets a 304.
type FeedServer struct {
	*httptest.Server

	mutex     sync.Mutex
	responses map[string]feedResponse
	requests  map[string]int
}

// NewFeedServer starts a FeedServer that is closed when the test finishes.
func NewFeedServer(t testing.TB) *FeedServer {
	s := &FeedServer{
		responses: make(map[string]feedResponse),
		requests:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)

	return s
}

func (s *FeedServer) serveHTTP(w http.ResponseWriter, req *http.Request) {
	s.mutex.Lock()
	response, ok := s.responses[req.URL.Path]
	s.requests[req.URL.Path]++
	s.mutex.Unlock()

	if !ok {
		http.NotFound(w, req)
		return
	}

	if response.status != http.StatusOK {
		w.WriteHeader(response.status)
		return
	}

	if response.etag != "" {
		w.Header().Set("ETag", response.etag)
		if req.Header.Get("If-None-Match") == response.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", response.contentType)
	w.Write(response.body)
}

// AddRaw registers body at path. It returns the feed URL.
func (s *FeedServer) AddRaw(path, contentType string, body []byte) string {
	digest := sha1.Sum(body)

	s.mutex.Lock()
	s.responses[path] = feedResponse{
		status:      http.StatusOK,
		contentType: contentType,
		body:        body,
		etag:        `"` + hex.EncodeToString(digest[:]) + `"`,
	}
	s.mutex.Unlock()

	return s.URL + path
}

// AddStatus makes path respond with an empty body and status. It returns the feed URL.
func (s *FeedServer) AddStatus(path string, status int) string {
	s.mutex.Lock()
	s.responses[path] = feedResponse{status: status}
	s.mutex.Unlock()

	return s.URL + path
}

func (s *FeedServer) AddRSS(t testing.TB, path string, feed *feeds.Feed) string {
	rss, err := feed.ToRss()
	require.NoError(t, err)
	return s.AddRaw(path, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (s *FeedServer) AddAtom(t testing.TB, path string, feed *feeds.Feed) string {
	atom, err := feed.ToAtom()
	require.NoError(t, err)
	return s.AddRaw(path, "application/atom+xml; charset=utf-8", []byte(atom))
}

func (s *FeedServer) AddJSON(t testing.TB, path string, feed *feeds.Feed) string {
	jsonFeed, err := feed.ToJSON()
	require.NoError(t, err)
	return s.AddRaw(path, "application/feed+json", []byte(jsonFeed))
}

// Requests returns the number of requests made for path.
func (s *FeedServer) Requests(path string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.requests[path]
}
