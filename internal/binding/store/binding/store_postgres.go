package binding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
	txcontext "bindery/pkg/platform/tx"
)

// Schema for accepted bindings. One relation carries both views: the primary
// key is the forward slot, the unique index is the reverse slot, so the
// bijection between them is structural rather than maintained by code.
const Schema = `
CREATE TABLE IF NOT EXISTS bindings (
    account_id  TEXT NOT NULL,
    platform    TEXT NOT NULL,
    handle      TEXT NOT NULL,
    PRIMARY KEY (account_id, platform),
    CONSTRAINT bindings_platform_handle_key UNIQUE (platform, handle)
)`

// Postgres persists accepted bindings.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure bindings schema: %w", err)
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

func (s *Postgres) GetHandle(ctx context.Context, accountID id.AccountID, platform models.Platform) (string, error) {
	var handle string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT handle FROM bindings WHERE account_id = $1 AND platform = $2`,
		string(accountID), string(platform)).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get handle: %w", err)
	}
	return handle, nil
}

func (s *Postgres) LookupAccount(ctx context.Context, platform models.Platform, handle string) (id.AccountID, error) {
	var accountID id.AccountID
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT account_id FROM bindings WHERE platform = $1 AND handle = $2`,
		string(platform), handle).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}
	return accountID, nil
}

func (s *Postgres) Create(ctx context.Context, b models.Binding) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO bindings (account_id, platform, handle) VALUES ($1, $2, $3)`,
		string(b.AccountID), string(b.Platform), b.Handle)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create binding: %w", err)
	}
	return nil
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Binding, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT account_id, platform, handle FROM bindings
		  WHERE account_id = $1 ORDER BY platform`,
		string(accountID))
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var out []models.Binding
	for rows.Next() {
		var b models.Binding
		if err := rows.Scan(&b.AccountID, &b.Platform, &b.Handle); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Postgres) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT account_id) FROM bindings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (s *Postgres) ListAccounts(ctx context.Context, from, limit int64) ([]id.AccountID, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT DISTINCT account_id FROM bindings
		  ORDER BY account_id OFFSET $1 LIMIT $2`,
		from, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []id.AccountID
	for rows.Next() {
		var accountID id.AccountID
		if err := rows.Scan(&accountID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, accountID)
	}
	return out, rows.Err()
}
