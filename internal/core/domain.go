package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// DefaultCategory is substituted when a record carries no category.
const DefaultCategory = "Uncategorized"

type (
	// Kind separates the two transaction collections. A ledger store holds
	// exactly one kind; the two are never mixed in a single collection.
	Kind string

	// Transaction is one ledger entry as confirmed by the remote store.
	// ID is assigned by the store and is empty until first persistence.
	// OwnerID is set at creation and immutable afterwards.
	Transaction struct {
		ID       string
		OwnerID  string
		Kind     Kind
		Label    string // "source" for income, "title" for expense
		Amount   decimal.Decimal
		Category string
		Date     time.Time
	}

	// Draft is the caller-supplied input for creating a transaction.
	// A zero Date means "now" at creation time.
	Draft struct {
		OwnerID  string
		Kind     Kind
		Label    string
		Amount   decimal.Decimal
		Category string
		Date     time.Time
	}

	// Patch carries the fields of an update; nil fields keep the stored value.
	Patch struct {
		Label    *string
		Amount   *decimal.Decimal
		Category *string
		Date     *time.Time
	}
)

var (
	ErrInvalidKind    = errors.New("invalid transaction kind")
	ErrMissingOwner   = errors.New("missing owner id")
	ErrEmptyLabel     = errors.New("empty label")
	ErrNegativeAmount = errors.New("negative amount")
)

// Valid reports whether the kind is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// LabelField returns the wire name of the label field for this kind.
func (k Kind) LabelField() string {
	if k == Income {
		return "source"
	}
	return "title"
}

func (d Draft) Validate() error {
	if !d.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(d.OwnerID) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(d.Label) == "" {
		return ErrEmptyLabel
	}
	if d.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Apply returns a copy of t with the patch's non-nil fields replaced.
// ID, OwnerID and Kind are never touched.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Label != nil {
		t.Label = *p.Label
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// CategoryOrDefault returns the category, or DefaultCategory when blank.
func (t Transaction) CategoryOrDefault() string {
	if strings.TrimSpace(t.Category) == "" {
		return DefaultCategory
	}
	return t.Category
}

// AmountOrZero returns the amount with defensive coercion: a negative
// value (possible only on malformed remote records) counts as zero, and
// the decimal zero value already covers a missing amount.
func (t Transaction) AmountOrZero() decimal.Decimal {
	if t.Amount.IsNegative() {
		return decimal.Zero
	}
	return t.Amount
}
