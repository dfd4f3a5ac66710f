package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/remote"
)

const dateLayout = "2006-01-02"

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeRemoteError maps the error taxonomy onto HTTP status codes.
func writeRemoteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := ""
	switch remote.KindOf(err) {
	case remote.KindValidation:
		status = http.StatusUnprocessableEntity
		kind = string(remote.KindValidation)
	case remote.KindAuthorization:
		status = http.StatusForbidden
		kind = string(remote.KindAuthorization)
	case remote.KindNotFound:
		status = http.StatusNotFound
		kind = string(remote.KindNotFound)
	case remote.KindNetwork:
		status = http.StatusBadGateway
		kind = string(remote.KindNetwork)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

// transactionJSON renders a transaction with the kind-specific label field:
// incomes carry "source", expenses carry "title".
func transactionJSON(t core.Transaction) map[string]any {
	date := ""
	if !t.Date.IsZero() {
		date = t.Date.Format(dateLayout)
	}
	body := map[string]any{
		"id":       t.ID,
		"owner_id": t.OwnerID,
		"kind":     string(t.Kind),
		"amount":   t.Amount.String(),
		"category": t.CategoryOrDefault(),
		"date":     date,
	}
	body[t.Kind.LabelField()] = t.Label
	return body
}

func snapshotJSON(snap ledger.Snapshot) map[string]any {
	items := make([]map[string]any, 0, len(snap.Items))
	for _, t := range snap.Items {
		items = append(items, transactionJSON(t))
	}

	body := map[string]any{
		"items":   items,
		"loading": snap.Loading,
		"phase":   string(snap.Phase),
	}
	if snap.Err != nil {
		body["error"] = errorBody{Error: snap.Err.Error(), Kind: string(snap.Err.Kind)}
	}
	return body
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
