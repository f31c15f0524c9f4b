package backend

import (
	"context"
	"fmt"

	"github.com/jackc/feedreader/backend/data"
	"github.com/vaughan0/go-ini"
	log "gopkg.in/inconshreveable/log15.v2"
)

// NewStore returns a PostgreSQL backed feed cache when conf has a database section and an in-memory cache otherwise.
// The returned close function releases the database pool.
func NewStore(ctx context.Context, conf ini.File, logger log.Logger) (data.Store, func(), error) {
	pool, err := NewPool(ctx, conf, logger)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		logger.Info("No database configured, caching feeds in memory")
		return data.NewMemoryStore(), func() {}, nil
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("Failed to connect to database: %v", err)
	}
	err = data.Migrate(ctx, conn.Conn(), logger.New("module", "migrate"))
	conn.Release()
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("Failed to migrate database: %v", err)
	}

	return data.NewPgxStore(pool), pool.Close, nil
}
