package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS default_rights (
			tier       TEXT PRIMARY KEY,
			rights     BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	selectRightsSQL = `
		SELECT rights
		FROM default_rights
		WHERE tier = $1`

	upsertRightsSQL = `
		INSERT INTO default_rights (tier, rights, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tier) DO UPDATE
		SET rights = EXCLUDED.rights,
			updated_at = NOW()`

	listRightsSQL = `
		SELECT tier, rights, updated_at
		FROM default_rights
		ORDER BY tier`
)

// Postgres stores one row per tier in the default_rights table.
type Postgres struct {
	db DBTX
}

// NewPostgres returns a store over db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the default_rights table when it is missing. Deployments
// that run [Migrate] do not need it.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("store: create default_rights: %w", err)
	}
	return nil
}

// DefaultRights implements [Store].
func (p *Postgres) DefaultRights(ctx context.Context, tier role.Tier) (rights.Buffer, error) {
	if err := checkTier(tier); err != nil {
		return nil, err
	}
	var raw []byte
	err := p.db.QueryRow(ctx, selectRightsSQL, tier.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: select default_rights[%s]: %w", tier, err)
	}
	return rights.Buffer(raw), nil
}

// SetDefaultRights implements [Store] with an upsert.
func (p *Postgres) SetDefaultRights(ctx context.Context, tier role.Tier, buf rights.Buffer) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	raw := []byte(buf)
	if raw == nil {
		raw = []byte{}
	}
	if _, err := p.db.Exec(ctx, upsertRightsSQL, tier.String(), raw); err != nil {
		return fmt.Errorf("store: upsert default_rights[%s]: %w", tier, err)
	}
	return nil
}

// Record is one stored tier row.
type Record struct {
	Tier      role.Tier
	Rights    rights.Buffer
	UpdatedAt time.Time
}

// List returns every stored row ordered by tier name. Rows with unknown tier
// names are skipped.
func (p *Postgres) List(ctx context.Context) ([]Record, error) {
	rows, err := p.db.Query(ctx, listRightsSQL)
	if err != nil {
		return nil, fmt.Errorf("store: list default_rights: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			name string
			raw  []byte
			at   time.Time
		)
		if err := rows.Scan(&name, &raw, &at); err != nil {
			return nil, fmt.Errorf("store: scan default_rights: %w", err)
		}
		tier, err := role.ParseTier(name)
		if err != nil {
			continue
		}
		out = append(out, Record{Tier: tier, Rights: rights.Buffer(raw), UpdatedAt: at})
	}
	return out, rows.Err()
}
