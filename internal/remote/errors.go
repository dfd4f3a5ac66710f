package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies remote store failures into the four categories the
// ledger state surfaces to consumers.
type ErrorKind string

const (
	// KindNetwork covers transport failures and timeouts.
	KindNetwork ErrorKind = "network"
	// KindValidation covers missing required fields and negative amounts.
	KindValidation ErrorKind = "validation"
	// KindAuthorization covers owner mismatches (forbidden).
	KindAuthorization ErrorKind = "authorization"
	// KindNotFound covers operations targeting a nonexistent id.
	KindNotFound ErrorKind = "not_found"
)

// Error is a classified remote store failure. Op names the operation that
// failed ("list", "create", "update", "delete").
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a KindNotFound error for the given operation and id.
func NotFound(op, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("transaction %s not found", id)}
}

// Forbidden builds a KindAuthorization error for an owner mismatch.
func Forbidden(op, id string) *Error {
	return &Error{Kind: KindAuthorization, Op: op, Err: fmt.Errorf("transaction %s is owned by another user", id)}
}

// Invalid wraps a validation failure.
func Invalid(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Network wraps a transport failure.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Classify wraps err as a remote Error if it is not one already. Context
// deadlines, cancellations and net errors map to KindNetwork, as does
// anything unrecognized: an unreachable or misbehaving store is a
// transport problem from the ledger's point of view.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return Network(op, err)
	}
	return Network(op, err)
}

// KindOf returns the classification of err, or "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNetwork
}
