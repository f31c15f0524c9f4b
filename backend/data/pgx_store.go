package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PgxStore struct {
	pool *pgxpool.Pool
}

func NewPgxStore(pool *pgxpool.Pool) *PgxStore {
	return &PgxStore{pool: pool}
}

func newNullTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

func newNullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func (s *PgxStore) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	return SelectFeedByURL(ctx, s.pool, url)
}

func SelectFeedByURL(ctx context.Context, db Queryer, url string) (*Feed, error) {
	var (
		feedID          int32
		etag            pgtype.Text
		lastFetchTime   pgtype.Timestamptz
		lastFailure     pgtype.Text
		lastFailureTime pgtype.Timestamptz
	)

	feed := &Feed{}
	err := db.QueryRow(ctx, `select id, url, name, etag, last_fetch_time, last_failure, last_failure_time, failure_count
from feeds
where url=$1`, url).Scan(&feedID, &feed.URL, &feed.Name, &etag, &lastFetchTime, &lastFailure, &lastFailureTime, &feed.FailureCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	feed.ETag = etag.String
	feed.LastFetchTime = lastFetchTime.Time
	feed.LastFailure = lastFailure.String
	feed.LastFailureTime = lastFailureTime.Time

	rows, _ := db.Query(ctx, `select title, url, summary, publication_time
from items
where feed_id=$1
order by position`, feedID)
	feed.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ParsedItem, error) {
		var item ParsedItem
		var publicationTime pgtype.Timestamptz
		err := row.Scan(&item.Title, &item.URL, &item.Summary, &publicationTime)
		item.PublicationTime = publicationTime.Time
		return item, err
	})
	if err != nil {
		return nil, err
	}

	return feed, nil
}

func (s *PgxStore) UpdateFeedWithFetchSuccess(ctx context.Context, url string, update *ParsedFeed, etag string, fetchTime time.Time) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var feedID int32
		err := tx.QueryRow(ctx, `insert into feeds(url, name, etag, last_fetch_time)
values($1, $2, $3, $4)
on conflict (url) do update set
  name=excluded.name,
  etag=excluded.etag,
  last_fetch_time=excluded.last_fetch_time,
  last_failure=null,
  last_failure_time=null,
  failure_count=0
returning id`, url, update.Name, newNullText(etag), fetchTime).Scan(&feedID)
		if err != nil {
			return fmt.Errorf("upsert feed: %w", err)
		}

		_, err = tx.Exec(ctx, `delete from items where feed_id=$1`, feedID)
		if err != nil {
			return fmt.Errorf("delete items: %w", err)
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"items"},
			[]string{"feed_id", "position", "title", "url", "summary", "publication_time"},
			pgx.CopyFromSlice(len(update.Items), func(i int) ([]any, error) {
				item := update.Items[i]
				return []any{feedID, int32(i), item.Title, item.URL, item.Summary, newNullTimestamptz(item.PublicationTime)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy items: %w", err)
		}

		return nil
	})
}

func (s *PgxStore) UpdateFeedWithFetchUnchanged(ctx context.Context, url string, fetchTime time.Time) error {
	commandTag, err := s.pool.Exec(ctx, `update feeds
set last_fetch_time=$2,
  last_failure=null,
  last_failure_time=null,
  failure_count=0
where url=$1`, url, fetchTime)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() != 1 {
		return ErrNotFound
	}

	return nil
}

func (s *PgxStore) UpdateFeedWithFetchFailure(ctx context.Context, url string, failure string, fetchTime time.Time) error {
	_, err := s.pool.Exec(ctx, `insert into feeds(url, last_fetch_time, last_failure, last_failure_time, failure_count)
values($1, $2, $3, $2, 1)
on conflict (url) do update set
  last_fetch_time=excluded.last_fetch_time,
  last_failure=excluded.last_failure,
  last_failure_time=excluded.last_failure_time,
  failure_count=feeds.failure_count+1`, url, fetchTime, failure)
	return err
}
