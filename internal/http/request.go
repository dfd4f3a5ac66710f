package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// transactionRequest is the wire shape for create and update. Incomes name
// their label "source", expenses "title"; both are accepted and the
// kind-appropriate one wins.
type transactionRequest struct {
	Title    *string `json:"title"`
	Source   *string `json:"source"`
	Amount   *string `json:"amount"`
	Category *string `json:"category"`
	Date     *string `json:"date"`
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return nil
}

func (req *transactionRequest) label(kind core.Kind) *string {
	if kind == core.Income {
		if req.Source != nil {
			return req.Source
		}
		return req.Title
	}
	if req.Title != nil {
		return req.Title
	}
	return req.Source
}

// toDraft builds a creation draft. Amounts and dates are coerced the same
// way stored records are: malformed values become zero rather than errors,
// validation happens downstream.
func (req *transactionRequest) toDraft(kind core.Kind) core.Draft {
	draft := core.Draft{Kind: kind}

	if label := req.label(kind); label != nil {
		draft.Label = strings.TrimSpace(*label)
	}
	if req.Amount != nil {
		draft.Amount = core.ParseAmount(*req.Amount)
	}
	if req.Category != nil {
		draft.Category = strings.TrimSpace(*req.Category)
	}
	if req.Date != nil {
		if d, err := time.Parse(dateLayout, strings.TrimSpace(*req.Date)); err == nil {
			draft.Date = d
		}
	}
	return draft
}

// toPatch builds a partial update; absent fields stay untouched.
func (req *transactionRequest) toPatch(kind core.Kind) core.Patch {
	var patch core.Patch

	if label := req.label(kind); label != nil {
		trimmed := strings.TrimSpace(*label)
		patch.Label = &trimmed
	}
	if req.Amount != nil {
		amount := core.ParseAmount(*req.Amount)
		patch.Amount = &amount
	}
	if req.Category != nil {
		trimmed := strings.TrimSpace(*req.Category)
		patch.Category = &trimmed
	}
	if req.Date != nil {
		if d, err := time.Parse(dateLayout, strings.TrimSpace(*req.Date)); err == nil {
			patch.Date = &d
		}
	}
	return patch
}
