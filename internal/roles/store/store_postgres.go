package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
	txcontext "bindery/pkg/platform/tx"
)

// Schema for role state. registry_owner is a single-row table; the CHECK
// pins the row so "exactly one owner" survives careless writes.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_owner (
    singleton   BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    account_id  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS registry_managers (
    account_id  TEXT PRIMARY KEY
)`

// Postgres persists role state.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the tables and seeds the owner row if absent.
func (s *Postgres) EnsureSchema(ctx context.Context, initialOwner id.AccountID) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure roles schema: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_owner (singleton, account_id) VALUES (TRUE, $1)
		 ON CONFLICT (singleton) DO NOTHING`,
		string(initialOwner))
	if err != nil {
		return fmt.Errorf("seed registry owner: %w", err)
	}
	return nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Owner(ctx context.Context) (id.AccountID, error) {
	var owner id.AccountID
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT account_id FROM registry_owner WHERE singleton`).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get owner: %w", err)
	}
	return owner, nil
}

func (s *Postgres) SetOwner(ctx context.Context, owner id.AccountID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO registry_owner (singleton, account_id) VALUES (TRUE, $1)
		 ON CONFLICT (singleton) DO UPDATE SET account_id = EXCLUDED.account_id`,
		string(owner))
	if err != nil {
		return fmt.Errorf("set owner: %w", err)
	}
	return nil
}

func (s *Postgres) AddManager(ctx context.Context, manager id.AccountID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO registry_managers (account_id) VALUES ($1)
		 ON CONFLICT (account_id) DO NOTHING`,
		string(manager))
	if err != nil {
		return fmt.Errorf("add manager: %w", err)
	}
	return nil
}

func (s *Postgres) RemoveManager(ctx context.Context, manager id.AccountID) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM registry_managers WHERE account_id = $1`,
		string(manager))
	if err != nil {
		return false, fmt.Errorf("remove manager: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove manager: %w", err)
	}
	return affected > 0, nil
}

func (s *Postgres) IsManager(ctx context.Context, accountID id.AccountID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_managers WHERE account_id = $1)`,
		string(accountID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is manager: %w", err)
	}
	return exists, nil
}
