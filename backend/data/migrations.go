package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
	log "gopkg.in/inconshreveable/log15.v2"
)

// Migrate brings the feed cache schema up to date.
func Migrate(ctx context.Context, conn *pgx.Conn, logger log.Logger) error {
	m, err := migrate.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	m.OnStart = func(sequence int32, name, direction, sql string) {
		logger.Info("Migrating", "sequence", sequence, "name", name, "direction", direction)
	}

	m.AppendMigration("Create feeds", `
    create table feeds(
      id serial primary key,
      url varchar not null unique check(url<>''),
      name varchar not null default '',
      etag varchar,
      last_fetch_time timestamp with time zone,
      last_failure varchar,
      last_failure_time timestamp with time zone,
      failure_count integer not null default 0,
      creation_time timestamp with time zone not null default now()
    );
  `, "drop table feeds;")

	m.AppendMigration("Create items", `
    create table items(
      id serial primary key,
      feed_id integer not null references feeds on delete cascade,
      position integer not null,
      title varchar not null,
      url varchar not null,
      summary varchar not null,
      publication_time timestamp with time zone,
      unique(feed_id, position)
    );
  `, "drop table items;")

	return m.Migrate(ctx)
}
