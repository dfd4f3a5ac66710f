// Package sqlite persists transactions in a local SQLite database. It is
// the default durable backend: zero external services, a single file on
// disk, schema managed through embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/remote"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) List(ctx context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error) {
	const query = `SELECT id, owner_id, kind, label, amount, category, date
		FROM transactions WHERE owner_id = ? AND kind = ? ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID, string(kind))
	if err != nil {
		return nil, remote.Network("list", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, remote.Network("list", err)
		}
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
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.OwnerID, string(t.Kind), t.Label, t.Amount.String(), t.Category, t.Date)
	if err != nil {
		return core.Transaction{}, remote.Network("create", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"kind", t.Kind,
		"amount", t.Amount.String())

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
		SET label = ?, amount = ?, category = ?, date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
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

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return remote.Network("delete", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id string) (core.Transaction, error) {
	const query = `SELECT id, owner_id, kind, label, amount, category, date
		FROM transactions WHERE id = ?`
	return scanTransaction(s.db.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var kind, amount string
	if err := row.Scan(&t.ID, &t.OwnerID, &kind, &t.Label, &amount, &t.Category, &t.Date); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	// Amounts are stored as decimal strings; malformed cells coerce to
	// zero rather than failing the whole list.
	t.Amount = core.ParseAmount(amount)
	return t, nil
}

var _ remote.Client = (*Store)(nil)
