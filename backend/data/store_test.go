package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/feedreader/backend/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type newStoreFunc func(t *testing.T) data.Store

func testStore(t *testing.T, newStore newStoreFunc) {
	t.Run("GetFeedByURL missing feed", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetFeedByURL(context.Background(), "http://example.org/missing")
		require.ErrorIs(t, err, data.ErrNotFound)
	})

	t.Run("UpdateFeedWithFetchSuccess", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		fetchTime := time.Date(2014, 1, 3, 22, 45, 0, 0, time.UTC)

		update := &data.ParsedFeed{
			Name: "News",
			Items: []data.ParsedItem{
				{Title: "Snow Storm", URL: "http://example.org/snow-storm", Summary: "Cold", PublicationTime: fetchTime},
				{Title: "Blizzard", URL: "http://example.org/blizzard"},
			},
		}
		err := store.UpdateFeedWithFetchSuccess(ctx, "http://example.org/feed", update, "abc", fetchTime)
		require.NoError(t, err)

		feed, err := store.GetFeedByURL(ctx, "http://example.org/feed")
		require.NoError(t, err)
		assert.Equal(t, "http://example.org/feed", feed.URL)
		assert.Equal(t, "News", feed.Name)
		assert.Equal(t, "abc", feed.ETag)
		assert.True(t, fetchTime.Equal(feed.LastFetchTime))
		assert.EqualValues(t, 0, feed.FailureCount)
		require.Len(t, feed.Items, 2)
		assert.Equal(t, "Snow Storm", feed.Items[0].Title)
		assert.Equal(t, "Cold", feed.Items[0].Summary)
		assert.True(t, fetchTime.Equal(feed.Items[0].PublicationTime))
		assert.Equal(t, "Blizzard", feed.Items[1].Title)
		assert.True(t, feed.Items[1].PublicationTime.IsZero())

		// A second success replaces the items instead of appending
		update = &data.ParsedFeed{Name: "News", Items: []data.ParsedItem{{Title: "Thaw", URL: "http://example.org/thaw"}}}
		err = store.UpdateFeedWithFetchSuccess(ctx, "http://example.org/feed", update, "", fetchTime.Add(time.Minute))
		require.NoError(t, err)

		feed, err = store.GetFeedByURL(ctx, "http://example.org/feed")
		require.NoError(t, err)
		assert.Equal(t, "", feed.ETag)
		require.Len(t, feed.Items, 1)
		assert.Equal(t, "Thaw", feed.Items[0].Title)
	})

	t.Run("UpdateFeedWithFetchUnchanged", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		fetchTime := time.Date(2014, 1, 3, 22, 45, 0, 0, time.UTC)

		err := store.UpdateFeedWithFetchUnchanged(ctx, "http://example.org/feed", fetchTime)
		require.ErrorIs(t, err, data.ErrNotFound)

		update := &data.ParsedFeed{Name: "News", Items: []data.ParsedItem{{Title: "Snow Storm"}}}
		err = store.UpdateFeedWithFetchSuccess(ctx, "http://example.org/feed", update, "abc", fetchTime)
		require.NoError(t, err)

		err = store.UpdateFeedWithFetchUnchanged(ctx, "http://example.org/feed", fetchTime.Add(time.Hour))
		require.NoError(t, err)

		feed, err := store.GetFeedByURL(ctx, "http://example.org/feed")
		require.NoError(t, err)
		assert.True(t, fetchTime.Add(time.Hour).Equal(feed.LastFetchTime))
		assert.Equal(t, "abc", feed.ETag)
		require.Len(t, feed.Items, 1)
	})

	t.Run("UpdateFeedWithFetchFailure", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		fetchTime := time.Date(2014, 1, 3, 22, 45, 0, 0, time.UTC)

		err := store.UpdateFeedWithFetchFailure(ctx, "http://example.org/feed", "connection refused", fetchTime)
		require.NoError(t, err)
		err = store.UpdateFeedWithFetchFailure(ctx, "http://example.org/feed", "404 Not Found", fetchTime.Add(time.Minute))
		require.NoError(t, err)

		feed, err := store.GetFeedByURL(ctx, "http://example.org/feed")
		require.NoError(t, err)
		assert.EqualValues(t, 2, feed.FailureCount)
		assert.Equal(t, "404 Not Found", feed.LastFailure)
		assert.True(t, fetchTime.Add(time.Minute).Equal(feed.LastFailureTime))
		assert.Empty(t, feed.Items)

		// Success clears the failure
		update := &data.ParsedFeed{Name: "News", Items: []data.ParsedItem{{Title: "Snow Storm"}}}
		err = store.UpdateFeedWithFetchSuccess(ctx, "http://example.org/feed", update, "", fetchTime.Add(2*time.Minute))
		require.NoError(t, err)

		feed, err = store.GetFeedByURL(ctx, "http://example.org/feed")
		require.NoError(t, err)
		assert.EqualValues(t, 0, feed.FailureCount)
		assert.Equal(t, "", feed.LastFailure)
		assert.True(t, feed.LastFailureTime.IsZero())
	})
}
