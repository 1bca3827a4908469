// Package pgstore stores documents in PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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

// ConnString returns the DSN for c.
func (c Conf) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
		c.Host, c.Port, c.User, c.PW, c.DB, c.TZ,
	)
}

type Store struct {
	pool  *pgxpool.Pool
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
	cfg, err := pgxpool.ParseConfig(conf.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing pgx config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 3 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	s := New(pool, conf.Table, opts...)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.log.Info().Str("table", s.table).Msg("pgsql store initialized")
	return s, nil
}

// New wraps an existing pool. An empty table name means "documents".
func New(pool *pgxpool.Pool, table string, opts ...Option) *Store {
	if table == "" {
		table = "documents"
	}
	s := &Store{pool: pool, table: pgx.Identifier{table}.Sanitize(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createSQL(s.table)); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

func createSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	key TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	pages INTEGER NOT NULL,
	words INTEGER NOT NULL,
	content JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`
}

func upsertSQL(table string) string {
	return `INSERT INTO ` + table + ` (key, title, pages, words, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (key) DO UPDATE SET
	title = EXCLUDED.title,
	pages = EXCLUDED.pages,
	words = EXCLUDED.words,
	content = EXCLUDED.content,
	updated_at = EXCLUDED.updated_at`
}

const columns = "key, title, pages, words, content, created_at, updated_at"

func (s *Store) Upsert(ctx context.Context, key string, doc *document.Document, ts time.Time) error {
	rec, err := store.NewRecord(key, doc, ts)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertSQL(s.table),
		rec.Key, rec.Title, rec.Pages, rec.Words, rec.Content, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (store.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM `+s.table+` WHERE key = $1`, key)
	rec, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("reading %s: %w", key, err)
	}
	return rec, nil
}

func (s *Store) ListAll(ctx context.Context) ([]store.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM `+s.table+` ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (store.Record, error) {
		return scan(r)
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return recs, nil
}

func (s *Store) DeleteByKey(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scan(row pgx.Row) (store.Record, error) {
	var r store.Record
	err := row.Scan(&r.Key, &r.Title, &r.Pages, &r.Words, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
