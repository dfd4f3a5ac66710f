package remote

import (
	"context"

	"fintrack/internal/core"
)

// Client is the port every remote transaction store implements. The ledger
// stores consume it and nothing else; the concrete adapters live in the
// subpackages (memory, sqlite, postgres, sheets).
type Client interface {
	// List returns all transactions of the given kind owned by ownerID,
	// in no particular order. An owner with no records yields an empty
	// slice and a nil error, never ErrNotFound.
	List(ctx context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error)

	// Create persists a draft and returns the canonical record with the
	// store-assigned ID. A zero draft date defaults to the current date.
	Create(ctx context.Context, draft core.Draft) (core.Transaction, error)

	// Update applies a patch to the record with the given id. It fails
	// with KindAuthorization when the record's owner differs from ownerID
	// and with KindNotFound when the id is unknown.
	Update(ctx context.Context, id string, patch core.Patch, ownerID string) (core.Transaction, error)

	// Delete removes the record with the given id, applying the same
	// ownership check as Update. Deleting an id that no longer exists
	// succeeds (idempotent).
	Delete(ctx context.Context, id string, ownerID string) error
}
