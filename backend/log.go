package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/vaughan0/go-ini"
	log "gopkg.in/inconshreveable/log15.v2"
)

func NewLogger(conf ini.File) (log.Logger, error) {
	level, _ := conf.Get("log", "level")
	if level == "" {
		level = "warn"
	}

	logger := log.New()
	err := setFilterHandler(level, logger, log.StdoutHandler)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func setFilterHandler(level string, logger log.Logger, handler log.Handler) error {
	if level == "none" {
		logger.SetHandler(log.DiscardHandler())
		return nil
	}

	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("Bad log level: %v", err)
	}
	logger.SetHandler(log.LvlFilterHandler(lvl, handler))

	return nil
}

type log15Adapter struct {
	logger log.Logger
}

func (a *log15Adapter) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	logArgs := make([]any, 0, len(data)*2)
	for k, v := range data {
		logArgs = append(logArgs, k, v)
	}

	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		a.logger.Debug(msg, logArgs...)
	case tracelog.LogLevelInfo:
		a.logger.Info(msg, logArgs...)
	case tracelog.LogLevelWarn:
		a.logger.Warn(msg, logArgs...)
	case tracelog.LogLevelError:
		a.logger.Error(msg, logArgs...)
	default:
		a.logger.Error(msg, append(logArgs, "INVALID_PGX_LOG_LEVEL", level)...)
	}
}

// NewPool connects to the feed cache database. It returns a nil pool and no error when the config has no database
// section; the caller should fall back to an in-memory cache.
func NewPool(ctx context.Context, conf ini.File, logger log.Logger) (*pgxpool.Pool, error) {
	dbConf := conf["database"]
	if len(dbConf) == 0 {
		return nil, nil
	}

	logger = logger.New("module", "pgx")
	if level, ok := conf.Get("log", "pgx_level"); ok {
		err := setFilterHandler(level, logger, log.StdoutHandler)
		if err != nil {
			return nil, err
		}
	}

	if dbConf["host"] == "" {
		return nil, errors.New("Config must contain database.host but it does not")
	}
	if dbConf["database"] == "" {
		return nil, errors.New("Config must contain database.database but it does not")
	}

	var connString strings.Builder
	for _, key := range []string{"host", "port", "database", "user", "password"} {
		value, ok := dbConf[key]
		if !ok {
			continue
		}
		if key == "database" {
			key = "dbname"
		}
		fmt.Fprintf(&connString, "%s=%s ", key, quoteConnStringValue(value))
	}

	config, err := pgxpool.ParseConfig(connString.String())
	if err != nil {
		return nil, fmt.Errorf("Bad database config: %v", err)
	}

	config.MaxConns = 10
	config.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   &log15Adapter{logger: logger},
		LogLevel: tracelog.LogLevelTrace,
	}

	return pgxpool.NewWithConfig(ctx, config)
}

func quoteConnStringValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
