// Package storage persists shape documents as a snapshot plus the sequenced
// transaction log written after it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"canvas/internal/config"
	"canvas/internal/replica"
)

// ErrNotFound is returned when a document has never been written.
var ErrNotFound = errors.New("storage: not found")

// Store is a durable document backend.
type Store interface {
	replica.Backend
	io.Closer
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Storage, dataDir string, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("storage")

	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "", "sqlite":
		path := cfg.DSN
		if path == "" {
			path = filepath.Join(dataDir, "canvas.db")
		}
		logger.Debug("opening sqlite", "path", path)
		return orNil(NewSQLite(path))
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = PostgresDSN(cfg)
		}
		return orNil(openSQL(ctx, postgresDialect, dsn))
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = MySQLDSN(cfg)
		}
		return orNil(openSQL(ctx, mysqlDialect, dsn))
	case "mongodb":
		uri := cfg.DSN
		if uri == "" {
			uri = MongoURI(cfg)
		}
		db := cfg.Database
		if db == "" {
			db = "canvas"
		}
		return orNil(NewMongoStore(ctx, uri, db, logger))
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// orNil keeps a failed constructor from yielding a non-nil Store holding a nil pointer.
func orNil[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
