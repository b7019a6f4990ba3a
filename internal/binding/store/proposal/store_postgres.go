package proposal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
	txcontext "bindery/pkg/platform/tx"
)

// Schema for the proposal table. The primary key encodes the "one pending
// proposal per (account, platform)" invariant.
const Schema = `
CREATE TABLE IF NOT EXISTS binding_proposals (
    account_id  TEXT   NOT NULL,
    platform    TEXT   NOT NULL,
    handle      TEXT   NOT NULL,
    created_at  BIGINT NOT NULL,
    PRIMARY KEY (account_id, platform)
)`

// Postgres persists proposals in the binding_proposals table. Honors a SQL
// transaction from context so accept can remove a proposal and insert the
// binding atomically.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the table definition. Called once at startup.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure binding_proposals schema: %w", err)
	}
	return nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) q(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Get(ctx context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT account_id, platform, handle, created_at
		   FROM binding_proposals
		  WHERE account_id = $1 AND platform = $2`,
		string(accountID), string(platform))

	var p models.Proposal
	if err := row.Scan(&p.AccountID, &p.Platform, &p.Handle, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return &p, nil
}

func (s *Postgres) Put(ctx context.Context, p *models.Proposal) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO binding_proposals (account_id, platform, handle, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account_id, platform)
		 DO UPDATE SET handle = EXCLUDED.handle, created_at = EXCLUDED.created_at`,
		string(p.AccountID), string(p.Platform), p.Handle, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("put proposal: %w", err)
	}
	return nil
}

func (s *Postgres) Remove(ctx context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`DELETE FROM binding_proposals
		  WHERE account_id = $1 AND platform = $2
		 RETURNING account_id, platform, handle, created_at`,
		string(accountID), string(platform))

	var p models.Proposal
	if err := row.Scan(&p.AccountID, &p.Platform, &p.Handle, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("remove proposal: %w", err)
	}
	return &p, nil
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Proposal, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT account_id, platform, handle, created_at
		   FROM binding_proposals
		  WHERE account_id = $1
		  ORDER BY platform`,
		string(accountID))
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []models.Proposal
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.AccountID, &p.Platform, &p.Handle, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
