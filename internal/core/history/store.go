package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/logging"
	"github.com/sadopc/reqdesk/internal/protocol"
)

// MemoryPath opens a private in-memory database, mainly for tests.
const MemoryPath = ":memory:"

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Store persists request history in a single SQLite file. It owns one
// long-lived connection pool; writes are serialized, reads may overlap.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore opens (creating if needed) the history database at dbPath and
// ensures its schema.
func NewStore(dbPath string, opts ...Option) (*Store, error) {
	s := &Store{logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	dsn := dbPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errdef.Wrap(errdef.CodeStore, err, "creating history directory")
		}
		sep := "?"
		if strings.Contains(dbPath, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "opening history db")
	}
	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			method           TEXT NOT NULL,
			url              TEXT NOT NULL,
			query_params     TEXT,
			headers          TEXT,
			body             TEXT,
			status           INTEGER,
			response_body    TEXT,
			response_time_ms REAL,
			created_at       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_url ON history(url);
	`)
	if err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "creating history table")
	}
	return nil
}

// Append inserts e with created_at set to the current time and returns the
// new row id. e.ID and e.CreatedAt are ignored.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	if !e.Request.Method.Valid() {
		return 0, errdef.New(errdef.CodeSerialization, "invalid HTTP method %d", uint8(e.Request.Method))
	}
	params, err := encodeKV(e.Request.QueryParams)
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeSerialization, err, "encoding query params")
	}
	headers, err := encodeKV(e.Request.Headers)
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeSerialization, err, "encoding headers")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO history (method, url, query_params, headers, body, status, response_body, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Request.Method.String(), e.Request.URL, params, headers, e.Request.Body,
		int64(e.Response.Status), e.Response.Body, e.Response.ResponseTimeMs,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeStore, err, "inserting history")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeStore, err, "reading history id")
	}
	s.logger.Debug("saved history entry", "id", id, "method", e.Request.Method.String(), "url", e.Request.URL)
	return id, nil
}

const selectColumns = `SELECT id, method, url, query_params, headers, body, status, response_body, response_time_ms, created_at FROM history`

// ListAll returns every entry, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, "listing history", selectColumns+` ORDER BY id ASC`)
}

// Recent returns up to limit entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx, "listing recent history", selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
}

// Search returns entries whose URL contains query, most recent first.
func (s *Store) Search(ctx context.Context, query string) ([]Entry, error) {
	return s.query(ctx, "searching history",
		selectColumns+` WHERE url LIKE ? ESCAPE '\' ORDER BY id DESC LIMIT 50`,
		"%"+escapeLike(query)+"%")
}

// Get returns the entry with the given id, or an error wrapping ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	entries, err := s.query(ctx, "reading history entry", selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, errdef.Wrap(errdef.CodeStore, ErrNotFound, "history entry %d", id)
	}
	return entries[0], nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&count); err != nil {
		return 0, errdef.Wrap(errdef.CodeStore, err, "counting history")
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "%s", op)
	}
	defer rows.Close()

	return s.scanEntries(rows)
}

func (s *Store) scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var (
			e                  Entry
			method, createdAt  string
			params, headers    sql.NullString
			body, responseBody sql.NullString
			status             sql.NullInt64
			responseTime       sql.NullFloat64
		)
		err := rows.Scan(&e.ID, &method, &e.Request.URL, &params, &headers, &body,
			&status, &responseBody, &responseTime, &createdAt)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeStore, err, "scanning history row")
		}

		e.Request.Method, err = protocol.ParseMethod(method)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", e.ID, err)
		}
		e.Request.QueryParams = s.decodeColumn(e.ID, "query_params", params.String)
		e.Request.Headers = s.decodeColumn(e.ID, "headers", headers.String)
		e.Request.Body = body.String
		e.Response = protocol.Response{
			Status:         uint16(status.Int64),
			Body:           responseBody.String,
			ResponseTimeMs: responseTime.Float64,
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			s.logger.Warn("unparseable history timestamp", "id", e.ID, "created_at", createdAt)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeStore, err, "reading history rows")
	}
	return entries, nil
}

// decodeColumn keeps rows written in an older format readable by falling
// back to an empty collection.
func (s *Store) decodeColumn(id int64, column, raw string) []protocol.KeyValue {
	kvs, err := decodeKV(raw)
	if err != nil {
		s.logger.Warn("malformed stored collection", "id", id, "column", column, "error", err)
	}
	return kvs
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
