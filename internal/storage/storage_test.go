package storage_test

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/go-sql-driver/mysql"

	"canvas/internal/config"
	"canvas/internal/domain"
	"canvas/internal/replica"
	"canvas/internal/storage"
)

func insertTxn(id string, names ...string) replica.Txn {
	shapes := make([]domain.Shape, 0, len(names))
	for _, n := range names {
		shapes = append(shapes, domain.Shape{ID: n, Type: domain.ShapeSquare, Color: domain.ColorGreen, Position: domain.Position{X: 80, Y: 90}})
	}
	return replica.Txn{
		ID:       id,
		ClientID: "alice",
		Ops:      []replica.Op{{Kind: replica.OpInsert, Shapes: shapes, Anchor: replica.Anchor{Kind: replica.AnchorEnd}}},
	}
}

// exercise runs the same append/compact/load cycle against any backend.
func exercise(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	snap, entries, err := store.Load(ctx, "doc")
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(0), snap.Seq)
	assert.Equal(t, 0, len(entries))

	assert.Equal(t, nil, store.Append(ctx, "doc", replica.Sequenced{Seq: 1, Txn: insertTxn("t1", "a", "b")}))
	assert.Equal(t, nil, store.Append(ctx, "doc", replica.Sequenced{Seq: 2, Txn: insertTxn("t2", "c")}))

	_, entries, err = store.Load(ctx, "doc")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, "t1", entries[0].Txn.ID)
	assert.Equal(t, "b", entries[0].Txn.Ops[0].Shapes[1].ID)
	assert.Equal(t, domain.ColorGreen, entries[1].Txn.Ops[0].Shapes[0].Color)

	compacted := replica.Snapshot{Seq: 1, Shapes: entries[0].Txn.Ops[0].Shapes}
	assert.Equal(t, nil, store.Compact(ctx, "doc", compacted))

	snap, entries, err = store.Load(ctx, "doc")
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, 2, len(snap.Shapes))
	assert.Equal(t, 80.0, snap.Shapes[0].Position.X)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, uint64(2), entries[0].Seq)

	// Compacting again overwrites the snapshot.
	assert.Equal(t, nil, store.Compact(ctx, "doc", replica.Snapshot{Seq: 2}))
	snap, entries, err = store.Load(ctx, "doc")
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, 0, len(snap.Shapes))
	assert.Equal(t, 0, len(entries))

	_, other, err := store.Load(ctx, "other")
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(other))
}

func TestMemoryStore(t *testing.T) {
	exercise(t, storage.NewMemoryStore())
}

func TestSQLite(t *testing.T) {
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "nested", "canvas.db"))
	assert.Equal(t, nil, err)
	defer store.Close()
	assert.Equal(t, "sqlite", store.Dialect())
	exercise(t, store)
}

func TestSQLite_DocumentSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "canvas.db")

	store, err := storage.NewSQLite(path)
	assert.Equal(t, nil, err)
	doc, err := replica.OpenDocument(ctx, "board", store, nil)
	assert.Equal(t, nil, err)
	hub := replica.NewHub(doc, nil)
	hub.Connect("alice").InsertAtEnd(domain.Shape{ID: "s1", Type: domain.ShapeCircle, Color: domain.ColorRed})
	assert.Equal(t, nil, doc.Compact(ctx))
	hub.Connect("bob").InsertAtEnd(domain.Shape{ID: "s2", Type: domain.ShapeTriangle, Color: domain.ColorBlue})
	assert.Equal(t, nil, store.Close())

	store, err = storage.NewSQLite(path)
	assert.Equal(t, nil, err)
	defer store.Close()
	reopened, err := replica.OpenDocument(ctx, "board", store, nil)
	assert.Equal(t, nil, err)
	snap := reopened.Snapshot()
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, 2, len(snap.Shapes))
	assert.Equal(t, "s2", snap.Shapes[1].ID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.Open(ctx, config.Storage{Driver: "memory"}, dir, nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, store.Close())

	store, err = storage.Open(ctx, config.Storage{Driver: "sqlite"}, dir, nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, store.Close())

	_, err = storage.Open(ctx, config.Storage{Driver: "oracle"}, dir, nil)
	assert.NotEqual(t, nil, err)
}

func TestDSNBuilders(t *testing.T) {
	cfg := config.Storage{Host: "db.local", User: "canvas", Password: "pw", Database: "boards"}

	assert.Equal(t,
		"host=db.local port=5432 user=canvas password=pw dbname=boards sslmode=disable",
		storage.PostgresDSN(cfg))
	assert.Equal(t, "mongodb://canvas:pw@db.local:27017", storage.MongoURI(cfg))

	mc, err := mysql.ParseDSN(storage.MySQLDSN(cfg))
	assert.Equal(t, nil, err)
	assert.Equal(t, "canvas", mc.User)
	assert.Equal(t, "pw", mc.Passwd)
	assert.Equal(t, "db.local:3306", mc.Addr)
	assert.Equal(t, "boards", mc.DBName)
	assert.Equal(t, true, mc.ParseTime)
	assert.Equal(t, "", mc.TLSConfig)

	cfg.Port = 6000
	cfg.SSLMode = "require"
	assert.Equal(t,
		"host=db.local port=6000 user=canvas password=pw dbname=boards sslmode=require",
		storage.PostgresDSN(cfg))
	mc, err = mysql.ParseDSN(storage.MySQLDSN(cfg))
	assert.Equal(t, nil, err)
	assert.Equal(t, "db.local:6000", mc.Addr)
	assert.Equal(t, "true", mc.TLSConfig)

	assert.Equal(t, "mongodb://localhost:27017", storage.MongoURI(config.Storage{Host: "localhost"}))
}

func TestDSNBuilders_EscapeCredentials(t *testing.T) {
	cfg := config.Storage{Host: "db.local", User: "canvas", Password: "p@ss:w/rd", Database: "boards"}

	mc, err := mysql.ParseDSN(storage.MySQLDSN(cfg))
	assert.Equal(t, nil, err)
	assert.Equal(t, "canvas", mc.User)
	assert.Equal(t, "p@ss:w/rd", mc.Passwd)
	assert.Equal(t, "db.local:3306", mc.Addr)
	assert.Equal(t, "boards", mc.DBName)

	u, err := url.Parse(storage.MongoURI(cfg))
	assert.Equal(t, nil, err)
	assert.Equal(t, "db.local:27017", u.Host)
	assert.Equal(t, "canvas", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd", pw)

	cfg.Password = `it's a pass\word`
	assert.Equal(t,
		`host=db.local port=5432 user=canvas password='it\'s a pass\\word' dbname=boards sslmode=disable`,
		storage.PostgresDSN(cfg))
}
