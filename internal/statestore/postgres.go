package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vk/ecow/internal/fingerprint"
)

const defaultTable = "ecow_fingerprints"

// Postgres stores one row per unit in a PostgreSQL table.
type Postgres struct {
	db *sql.DB
	// table is the quoted identifier, ready to be placed into SQL.
	table string
	owned bool

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgres opens a connection pool for dsn using the pgx driver and
// verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	p := NewPostgresDB(db, "")
	p.owned = true
	return p, nil
}

// NewPostgresDB wraps an existing pool. An empty table selects the default
// table name. The name is quoted, so it is taken literally.
func NewPostgresDB(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = defaultTable
	}
	return &Postgres{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// Close releases the pool if the store opened it.
func (p *Postgres) Close() error {
	if p.owned {
		return p.db.Close()
	}
	return nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  unit_name TEXT PRIMARY KEY,
  fingerprint TEXT NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`, p.table))
	})
	return p.schemaErr
}

// Load implements fingerprint.Store.
func (p *Postgres) Load(ctx context.Context) (fingerprint.Map, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT unit_name, fingerprint FROM %s`, p.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := fingerprint.Map{}
	for rows.Next() {
		var name, fp string
		if err := rows.Scan(&name, &fp); err != nil {
			return nil, err
		}
		m[name] = fp
	}
	return m, rows.Err()
}

// Save implements fingerprint.Store. The table is made to match m inside a
// single transaction.
func (p *Postgres) Save(ctx context.Context, m fingerprint.Map) (err error) {
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	names := make([]string, 0, len(m))
	for name, fp := range m {
		names = append(names, name)
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (unit_name, fingerprint, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (unit_name)
DO UPDATE SET fingerprint = EXCLUDED.fingerprint, updated_at = NOW()
WHERE %s.fingerprint <> EXCLUDED.fingerprint`, p.table, p.table), name, fp); err != nil {
			return fmt.Errorf("upsert %q: %w", name, err)
		}
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE NOT (unit_name = ANY($1))`, p.table), names); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return tx.Commit()
}
