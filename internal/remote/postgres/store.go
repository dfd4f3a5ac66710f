// Package postgres persists transactions in PostgreSQL for deployments
// where the ledger service is shared between several frontends.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

type Store struct {
	db *sql.DB
}

// NewStore connects to the database named by url and ensures the schema
// exists.
func NewStore(ctx context.Context, url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
		label TEXT NOT NULL,
		amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_owner_kind
		ON transactions (owner_id, kind, date DESC)`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error) {
	const query = `SELECT id, owner_id, kind, label, amount::text, category, date
		FROM transactions WHERE owner_id = $1 AND kind = $2 ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID, string(kind))
	if err != nil {
		return nil, remote.Network("list", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var kindCol, amount string
		if err := rows.Scan(&t.ID, &t.OwnerID, &kindCol, &t.Label, &amount, &t.Category, &t.Date); err != nil {
			return nil, remote.Network("list", err)
		}
		t.Kind = core.Kind(kindCol)
		t.Amount = core.ParseAmount(amount)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Network("list", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, draft core.Draft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, remote.Invalid("create", err)
	}

	t := core.Transaction{
		ID:       uuid.NewString(),
		OwnerID:  draft.OwnerID,
		Kind:     draft.Kind,
		Label:    draft.Label,
		Amount:   draft.Amount,
		Category: draft.Category,
		Date:     draft.Date,
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	const query = `INSERT INTO transactions (id, owner_id, kind, label, amount, category, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.OwnerID, string(t.Kind), t.Label, t.Amount.String(), t.Category, t.Date)
	if err != nil {
		return core.Transaction{}, remote.Network("create", err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, patch core.Patch, ownerID string) (core.Transaction, error) {
	current, err := s.get(ctx, id)
	if err == sql.ErrNoRows {
		return core.Transaction{}, remote.NotFound("update", id)
	}
	if err != nil {
		return core.Transaction{}, remote.Network("update", err)
	}
	if current.OwnerID != ownerID {
		return core.Transaction{}, remote.Forbidden("update", id)
	}

	updated := patch.Apply(current)
	if updated.Amount.IsNegative() {
		return core.Transaction{}, remote.Invalid("update", core.ErrNegativeAmount)
	}

	const query = `UPDATE transactions
		SET label = $1, amount = $2, category = $3, date = $4, updated_at = now()
		WHERE id = $5`
	_, err = s.db.ExecContext(ctx, query,
		updated.Label, updated.Amount.String(), updated.Category, updated.Date, id)
	if err != nil {
		return core.Transaction{}, remote.Network("update", err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string, ownerID string) error {
	current, err := s.get(ctx, id)
	if err == sql.ErrNoRows {
		return nil // already gone
	}
	if err != nil {
		return remote.Network("delete", err)
	}
	if current.OwnerID != ownerID {
		return remote.Forbidden("delete", id)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return remote.Network("delete", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id string) (core.Transaction, error) {
	const query = `SELECT id, owner_id, kind, label, amount::text, category, date
		FROM transactions WHERE id = $1`

	var t core.Transaction
	var kind, amount string
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.OwnerID, &kind, &t.Label, &amount, &t.Category, &t.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	t.Amount = core.ParseAmount(amount)
	return t, nil
}

var _ remote.Client = (*Store)(nil)
