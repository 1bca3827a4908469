// Package mysqlstore stores documents in MySQL through database/sql and
// the go-sql-driver/mysql driver.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/store"
)

// Conf describes the connection. DSN, when set, wins over the fields.
type Conf struct {
	Host  string
	Port  int
	User  string
	PW    string
	DB    string
	TZ    string
	DSN   string
	Table string
}

// ConnString returns the DSN for c. Times are parsed into time.Time.
func (c Conf) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.PW
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.DB
	cfg.ParseTime = true
	if c.TZ != "" {
		loc, err := time.LoadLocation(c.TZ)
		if err != nil {
			return "", fmt.Errorf("mysql time zone: %w", err)
		}
		cfg.Loc = loc
	}
	return cfg.FormatDSN(), nil
}

type Store struct {
	db    *sql.DB
	table string
	log   zerolog.Logger
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects, pings and creates the table if needed.
func Open(ctx context.Context, conf Conf, opts ...Option) (*Store, error) {
	dsn, err := conf.ConnString()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	s := New(db, conf.Table, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info().Str("table", s.table).Msg("mysql store initialized")
	return s, nil
}

// New wraps an open database. An empty table name means "documents".
func New(db *sql.DB, table string, opts ...Option) *Store {
	if table == "" {
		table = "documents"
	}
	s := &Store{db: db, table: quote(table), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func createSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + ` (
	` + "`key`" + ` VARCHAR(191) NOT NULL PRIMARY KEY,
	title TEXT NOT NULL,
	pages INT NOT NULL,
	words INT NOT NULL,
	content LONGBLOB NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL
)`
}

func upsertSQL(table string) string {
	return "INSERT INTO " + table + " (`key`, title, pages, words, content, created_at, updated_at)" + `
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	title = VALUES(title),
	pages = VALUES(pages),
	words = VALUES(words),
	content = VALUES(content),
	updated_at = VALUES(updated_at)`
}

const columns = "`key`, title, pages, words, content, created_at, updated_at"

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSQL(s.table)); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, key string, doc *document.Document, ts time.Time) error {
	rec, err := store.NewRecord(key, doc, ts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertSQL(s.table),
		rec.Key, rec.Title, rec.Pages, rec.Words, rec.Content, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM "+s.table+" WHERE `key` = ?", key)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("reading %s: %w", key, err)
	}
	return rec, nil
}

func (s *Store) ListAll(ctx context.Context) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM "+s.table+" ORDER BY updated_at DESC, `key`")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	var recs []store.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return recs, nil
}

func (s *Store) DeleteByKey(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE `key` = ?", key)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (store.Record, error) {
	var r store.Record
	err := row.Scan(&r.Key, &r.Title, &r.Pages, &r.Words, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
