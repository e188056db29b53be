package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)
)

// SQLiteConfig configures a SQLite cache.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite" (modernc.org/sqlite,
	// default) or "sqlite3" (github.com/mattn/go-sqlite3).
	Driver string

	// TTL is the time-to-live of entries (0 = no expiry).
	TTL time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Recorder receives hit, miss, eviction and size events (optional).
	Recorder Recorder
}

// SQLite is a persistent cache tier backed by a single database file.
// Expired rows are ignored on read and removed by Purge.
type SQLite struct {
	db        *sql.DB
	ttl       time.Duration
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
	mu        sync.RWMutex
	closeOnce sync.Once

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	countStmt  *sql.Stmt
	purgeStmt  *sql.Stmt
}

// NewSQLite opens (creating if needed) a SQLite cache database.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	var dsn string
	switch cfg.Driver {
	case "sqlite":
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
			cfg.Path, cfg.BusyTimeout.Milliseconds())
	case "sqlite3":
		dsn = fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
			cfg.Path, cfg.BusyTimeout.Milliseconds())
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLite{
		db:       db,
		ttl:      cfg.TTL,
		recorder: recorderOrNop(cfg.Recorder),
		logger:   slog.Default().With("component", "sandbox.cache.sqlite"),
		now:      time.Now,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	s.logger.Debug("sqlite cache opened", "path", cfg.Path, "driver", cfg.Driver)
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS validation_cache (
		key_hash TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		entry TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_validation_cache_expires ON validation_cache(expires_at);
	CREATE INDEX IF NOT EXISTS idx_validation_cache_identity ON validation_cache(identity);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT entry FROM validation_cache
		WHERE key_hash = ? AND (expires_at = 0 OR expires_at > ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.setStmt, err = s.db.Prepare(`
		INSERT INTO validation_cache (key_hash, identity, entry, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET
			entry = excluded.entry,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare set statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM validation_cache WHERE key_hash = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.countStmt, err = s.db.Prepare(`
		SELECT COUNT(*) FROM validation_cache WHERE expires_at = 0 OR expires_at > ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	s.purgeStmt, err = s.db.Prepare(`
		DELETE FROM validation_cache WHERE expires_at != 0 AND expires_at <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare purge statement: %w", err)
	}

	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.getStmt.QueryRowContext(ctx, Digest(key), s.now().UnixMilli()).Scan(&data)
	if err == sql.ErrNoRows {
		s.recorder.RecordMiss("sqlite")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache entry: %w", err)
	}

	entry, err := decodeEntry([]byte(data))
	if err != nil {
		return nil, false, err
	}
	s.recorder.RecordHit("sqlite")
	return entry, true, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	now := s.now()
	var expiresAt int64
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl).UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.setStmt.ExecContext(ctx, Digest(key), Identity(key), string(data), now.UnixMilli(), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, Digest(key)); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len implements Store.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.countStmt.QueryRowContext(ctx, s.now().UnixMilli()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Purge removes expired rows and returns how many were deleted.
func (s *SQLite) Purge(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.purgeStmt.ExecContext(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	for range deleted {
		s.recorder.RecordEviction("sqlite")
	}
	return int(deleted), nil
}

// DeleteIdentity removes every row cached under a policy identity.
func (s *SQLite) DeleteIdentity(ctx context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM validation_cache WHERE identity = ?`, identity)
	if err != nil {
		return 0, fmt.Errorf("failed to delete identity: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close implements Store. Close is idempotent.
func (s *SQLite) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.deleteStmt, s.countStmt, s.purgeStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}
