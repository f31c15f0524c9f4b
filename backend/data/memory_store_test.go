package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/feedreader/backend/data"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) data.Store {
		return data.NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()

	update := &data.ParsedFeed{Name: "News", Items: []data.ParsedItem{{Title: "Snow Storm"}}}
	err := store.UpdateFeedWithFetchSuccess(ctx, "http://example.org/feed", update, "", time.Now())
	require.NoError(t, err)

	update.Items[0].Title = "changed by caller"

	feed, err := store.GetFeedByURL(ctx, "http://example.org/feed")
	require.NoError(t, err)
	feed.Items[0].Summary = "changed by reader"

	feed, err = store.GetFeedByURL(ctx, "http://example.org/feed")
	require.NoError(t, err)
	require.Equal(t, "Snow Storm", feed.Items[0].Title)
	require.Equal(t, "", feed.Items[0].Summary)
}
