package http

import (
	"net/http"

	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
)

type sessionRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleSession manages the signed-in user. POST binds a user, DELETE
// signs out, GET reports the current identity. Bound stores follow the
// session on their own.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"user": s.sess.Current()})

	case http.MethodPost:
		var req sessionRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ID == "" {
			writeError(w, http.StatusUnprocessableEntity, "user id is required")
			return
		}
		s.sess.SetUser(session.User{ID: req.ID, Name: req.Name, Email: req.Email})
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Session user set",
			applog.FieldOwnerID, req.ID)
		writeJSON(w, http.StatusOK, map[string]any{"user": session.User{ID: req.ID, Name: req.Name, Email: req.Email}})

	case http.MethodDelete:
		s.sess.Clear()
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Session cleared")
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCollection serves the transaction list for one kind. GET returns
// the store snapshot (optionally refreshing from the remote first), POST
// creates a transaction.
func (s *Server) handleCollection(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("refresh") == "true" {
				store.Load(r.Context())
			}
			writeJSON(w, http.StatusOK, snapshotJSON(store.Snapshot()))

		case http.MethodPost:
			var req transactionRequest
			if err := decodeBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			created, err := store.Add(r.Context(), req.toDraft(store.Kind()))
			if err != nil {
				writeRemoteError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, transactionJSON(created))

		default:
			w.Header().Set("Allow", "GET, POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// handleItem serves single-transaction updates and deletes.
func (s *Server) handleItem(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing transaction id")
			return
		}

		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			var req transactionRequest
			if err := decodeBody(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			updated, err := store.Update(r.Context(), id, req.toPatch(store.Kind()))
			if err != nil {
				writeRemoteError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, transactionJSON(updated))

		case http.MethodDelete:
			if err := store.Delete(r.Context(), id); err != nil {
				writeRemoteError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.Header().Set("Allow", "PUT, PATCH, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
