package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"canvas/internal/domain"
	"canvas/internal/replica"
)

// dialect captures the per-engine SQL differences.
type dialect struct {
	name       string
	driver     string
	migrations []string
	upsert     string
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL DEFAULT 0,
			shapes_json TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ops (
			doc_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			txn_json TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (doc_id, seq)
		)`,
	},
	upsert: `INSERT INTO documents (id, seq, shapes_json, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET seq = excluded.seq, shapes_json = excluded.shapes_json, updated_at = excluded.updated_at`,
}

var postgresDialect = dialect{
	name:   "postgres",
	driver: "postgres",
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT 0,
			shapes_json TEXT NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ops (
			doc_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			txn_json TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (doc_id, seq)
		)`,
	},
	upsert: `INSERT INTO documents (id, seq, shapes_json, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET seq = EXCLUDED.seq, shapes_json = EXCLUDED.shapes_json, updated_at = EXCLUDED.updated_at`,
}

var mysqlDialect = dialect{
	name:   "mysql",
	driver: "mysql",
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id VARCHAR(191) PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT 0,
			shapes_json LONGTEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ops (
			doc_id VARCHAR(191) NOT NULL,
			seq BIGINT NOT NULL,
			txn_json LONGTEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (doc_id, seq)
		)`,
	},
	upsert: `INSERT INTO documents (id, seq, shapes_json, updated_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE seq = VALUES(seq), shapes_json = VALUES(shapes_json), updated_at = VALUES(updated_at)`,
}

// rebind rewrites ? placeholders into $n for postgres.
func (d dialect) rebind(query string) string {
	if d.name != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps documents in a SQL database.
type SQLStore struct {
	conn    *sql.DB
	dialect dialect
}

// NewSQLite opens (or creates) the SQLite file at dbPath.
func NewSQLite(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &SQLStore{conn: conn, dialect: sqliteDialect}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func openSQL(ctx context.Context, d dialect, dsn string) (*SQLStore, error) {
	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}

	s := &SQLStore{conn: conn, dialect: d}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.conn.Close()
}

// Dialect returns the engine name.
func (s *SQLStore) Dialect() string { return s.dialect.name }

func (s *SQLStore) migrate() error {
	for i, m := range s.dialect.migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i, s.dialect.name, err)
		}
	}
	return nil
}

// Load returns the latest snapshot of docID and every op sequenced after it.
// A document that was never written loads as empty.
func (s *SQLStore) Load(ctx context.Context, docID string) (replica.Snapshot, []replica.Sequenced, error) {
	snap, err := s.snapshot(ctx, docID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return replica.Snapshot{}, nil, err
	}

	rows, err := s.conn.QueryContext(ctx,
		s.dialect.rebind(`SELECT seq, txn_json FROM ops WHERE doc_id = ? AND seq > ? ORDER BY seq`),
		docID, snap.Seq,
	)
	if err != nil {
		return replica.Snapshot{}, nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	var log []replica.Sequenced
	for rows.Next() {
		var seq uint64
		var raw string
		if err := rows.Scan(&seq, &raw); err != nil {
			return replica.Snapshot{}, nil, fmt.Errorf("scan op: %w", err)
		}
		var txn replica.Txn
		if err := json.Unmarshal([]byte(raw), &txn); err != nil {
			return replica.Snapshot{}, nil, fmt.Errorf("decode op %d: %w", seq, err)
		}
		log = append(log, replica.Sequenced{Seq: seq, Txn: txn})
	}
	return snap, log, rows.Err()
}

func (s *SQLStore) snapshot(ctx context.Context, docID string) (replica.Snapshot, error) {
	var snap replica.Snapshot
	var raw string
	err := s.conn.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT seq, shapes_json FROM documents WHERE id = ?`), docID,
	).Scan(&snap.Seq, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return replica.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return replica.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snap.Shapes); err != nil {
		return replica.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Append writes one sequenced transaction.
func (s *SQLStore) Append(ctx context.Context, docID string, seq replica.Sequenced) error {
	raw, err := json.Marshal(seq.Txn)
	if err != nil {
		return fmt.Errorf("encode txn: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO ops (doc_id, seq, txn_json) VALUES (?, ?, ?)`),
		docID, seq.Seq, string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert op: %w", err)
	}
	return nil
}

// Compact stores snap and drops the ops it already contains.
func (s *SQLStore) Compact(ctx context.Context, docID string, snap replica.Snapshot) error {
	shapes := snap.Shapes
	if shapes == nil {
		shapes = []domain.Shape{}
	}
	raw, err := json.Marshal(shapes)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.upsert), docID, snap.Seq, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		s.dialect.rebind(`DELETE FROM ops WHERE doc_id = ? AND seq <= ?`), docID, snap.Seq,
	); err != nil {
		return fmt.Errorf("trim ops: %w", err)
	}
	return tx.Commit()
}
