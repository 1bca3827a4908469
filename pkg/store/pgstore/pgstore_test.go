package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/store/storetest"
)

func TestConnString(t *testing.T) {
	c := Conf{Host: "db", Port: 5432, User: "app", PW: "secret", DB: "pageflow", TZ: "UTC"}
	cfg, err := pgxpool.ParseConfig(c.ConnString())
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), cfg.ConnConfig.Port)
	assert.Equal(t, "pageflow", cfg.ConnConfig.Database)

	c.DSN = "postgres://u@elsewhere/x"
	assert.Equal(t, c.DSN, c.ConnString())
}

func TestStatementsQuoteTable(t *testing.T) {
	s := New(nil, `my"docs`)
	assert.Equal(t, `"my""docs"`, s.table)
	assert.Contains(t, upsertSQL(s.table), `ON CONFLICT (key) DO UPDATE`)
	assert.NotContains(t, upsertSQL(s.table), `created_at = EXCLUDED`)
	assert.Contains(t, createSQL(s.table), `"my""docs"`)
	assert.Equal(t, `"documents"`, New(nil, "").table)
}

// Set PAGEFLOW_PG_DSN to run against a scratch database.
func TestStore(t *testing.T) {
	dsn := os.Getenv("PAGEFLOW_PG_DSN")
	if dsn == "" {
		t.Skip("PAGEFLOW_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, Conf{DSN: dsn, Table: "pageflow_test_documents"})
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, `TRUNCATE `+s.table)
	require.NoError(t, err)

	storetest.Run(t, s)
}
