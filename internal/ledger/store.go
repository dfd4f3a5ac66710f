// Package ledger keeps a per-user, per-kind collection of transactions
// synchronized with a remote store and exposes consistent snapshots of it.
//
// A Store is the single owner of its state. Mutations go through defined
// operations only; consumers read immutable snapshots and derive views from
// them on demand. Reloads carry a recency token so a stale response can
// never overwrite newer state, and mutating operations are applied in issue
// order through a FIFO queue.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/remote"
	"fintrack/internal/session"
)

// Phase is the store's position in its lifecycle state machine.
type Phase string

const (
	// PhaseIdle: no owner bound, or bound but not yet loaded.
	PhaseIdle Phase = "idle"
	// PhaseLoading: a load is in flight.
	PhaseLoading Phase = "loading"
	// PhaseReady: the collection reflects the last successful operation.
	PhaseReady Phase = "ready"
	// PhaseError: the last operation failed; items hold the prior state.
	PhaseError Phase = "error"
)

// DefaultTimeout bounds every remote call issued by a store.
const DefaultTimeout = 10 * time.Second

// Snapshot is an immutable view of the store's state. Items are a copy,
// ordered most-recent-first, and never contain two entries with one id.
type Snapshot struct {
	Items   []core.Transaction
	Loading bool
	Err     *remote.Error
	Phase   Phase
}

// Options tunes a store. The zero value is usable: DefaultTimeout and no
// event publishing.
type Options struct {
	// Timeout bounds each remote call; exceeding it surfaces as a
	// network error like any other transport failure.
	Timeout time.Duration
	// Publisher receives an event after every confirmed mutation.
	// Publishing is best-effort and never fails the mutation.
	Publisher events.Publisher
}

// Store holds one kind's transaction collection for the bound owner.
type Store struct {
	kind    core.Kind
	client  remote.Client
	timeout time.Duration
	pub     events.Publisher

	muts fifoQueue

	mu      sync.Mutex
	ownerID string
	items   []core.Transaction
	phase   Phase
	loading bool
	err     *remote.Error
	gen     uint64 // bumped on every owner change; in-flight results from older generations are discarded
	loadSeq uint64 // bumped per load; a load result applies only if still the newest
}

func New(kind core.Kind, client remote.Client, opts Options) *Store {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		kind:    kind,
		client:  client,
		timeout: timeout,
		pub:     opts.Publisher,
		phase:   PhaseIdle,
	}
}

// Kind returns the transaction kind this store holds.
func (s *Store) Kind() core.Kind { return s.kind }

// OwnerID returns the currently bound owner, or "" when unbound.
func (s *Store) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]core.Transaction, len(s.items))
	copy(items, s.items)
	return Snapshot{Items: items, Loading: s.loading, Err: s.err, Phase: s.phase}
}

// SetOwner rebinds the store to a new owner, discarding the collection and
// the effects of every in-flight request. An empty id leaves the store
// unbound (logged out). SetOwner never loads; callers decide when.
func (s *Store) SetOwner(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.ownerID = ownerID
	s.items = nil
	s.loading = false
	s.err = nil
	s.phase = PhaseIdle
}

// Bind subscribes the store to session identity changes: login loads, a
// user switch resets then loads, logout resets. The store is also aligned
// with the session's current identity immediately. The returned function
// unbinds.
func (s *Store) Bind(ctx context.Context, sess *session.Session) func() {
	apply := func(u *session.User) {
		if u == nil {
			s.SetOwner("")
			return
		}
		s.SetOwner(u.ID)
		go s.Load(ctx)
	}
	apply(sess.Current())
	return sess.Subscribe(apply)
}

// Load fetches the owner's collection and replaces items wholesale on
// success. On failure the prior items stay available and the error is
// recorded. A load superseded by a newer load or an owner change is
// discarded entirely. Unbound stores do not load.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	owner := s.ownerID
	if owner == "" {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.loadSeq++
	seq := s.loadSeq
	s.loading = true
	s.err = nil
	s.phase = PhaseLoading
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	items, err := s.client.List(callCtx, owner, s.kind)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || seq != s.loadSeq {
		slog.DebugContext(ctx, "Discarding stale load response",
			"kind", s.kind, "owner_id", owner)
		return
	}
	s.loading = false
	if err != nil {
		s.err = remote.Classify("list", err)
		s.phase = PhaseError
		slog.ErrorContext(ctx, "Ledger load failed",
			"kind", s.kind, "owner_id", owner, "error", err)
		return
	}
	sorted := make([]core.Transaction, len(items))
	copy(sorted, items)
	core.SortByDateDesc(sorted)
	s.items = sorted
	s.err = nil
	s.phase = PhaseReady
}

// Add creates a transaction from the draft and prepends the confirmed
// record. The collection changes only once the remote store confirms;
// there is no client-side placeholder.
func (s *Store) Add(ctx context.Context, draft core.Draft) (core.Transaction, error) {
	release := s.muts.enter()
	defer release()

	s.mu.Lock()
	owner := s.ownerID
	gen := s.gen
	s.mu.Unlock()

	if owner == "" {
		rerr := remote.Invalid("create", errors.New("no authenticated user"))
		s.recordFailure(gen, rerr)
		return core.Transaction{}, rerr
	}

	draft.OwnerID = owner
	draft.Kind = s.kind
	if err := draft.Validate(); err != nil {
		rerr := remote.Invalid("create", err)
		s.recordFailure(gen, rerr)
		return core.Transaction{}, rerr
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	created, err := s.client.Create(callCtx, draft)
	cancel()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return core.Transaction{}, remote.Classify("create", errors.New("session changed"))
	}
	if err != nil {
		rerr := remote.Classify("create", err)
		s.err = rerr
		s.phase = PhaseError
		s.mu.Unlock()
		return core.Transaction{}, rerr
	}
	s.items = append([]core.Transaction{created}, s.items...)
	s.err = nil
	s.phase = PhaseReady
	s.mu.Unlock()

	s.publish(ctx, events.NewEvent(events.TypeCreated, created))
	return created, nil
}

// Update patches the record with the given id. The confirmed record
// replaces the local item in place; if the id is unknown locally the
// record is appended, keeping the store consistent with the server.
func (s *Store) Update(ctx context.Context, id string, patch core.Patch) (core.Transaction, error) {
	release := s.muts.enter()
	defer release()

	s.mu.Lock()
	owner := s.ownerID
	gen := s.gen
	s.mu.Unlock()

	if owner == "" {
		rerr := remote.Invalid("update", errors.New("no authenticated user"))
		s.recordFailure(gen, rerr)
		return core.Transaction{}, rerr
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	updated, err := s.client.Update(callCtx, id, patch, owner)
	cancel()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return core.Transaction{}, remote.Classify("update", errors.New("session changed"))
	}
	if err != nil {
		rerr := remote.Classify("update", err)
		s.err = rerr
		s.phase = PhaseError
		s.mu.Unlock()
		return core.Transaction{}, rerr
	}
	replaced := false
	for i := range s.items {
		if s.items[i].ID == updated.ID {
			s.items[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append(s.items, updated)
	}
	s.err = nil
	s.phase = PhaseReady
	s.mu.Unlock()

	s.publish(ctx, events.NewEvent(events.TypeUpdated, updated))
	return updated, nil
}

// Delete removes the record with the given id. Deleting an id that was
// already removed is a no-op success.
func (s *Store) Delete(ctx context.Context, id string) error {
	release := s.muts.enter()
	defer release()

	s.mu.Lock()
	owner := s.ownerID
	gen := s.gen
	s.mu.Unlock()

	if owner == "" {
		rerr := remote.Invalid("delete", errors.New("no authenticated user"))
		s.recordFailure(gen, rerr)
		return rerr
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.client.Delete(callCtx, id, owner)
	cancel()

	// A not-found from the remote still means the record is gone.
	if err != nil && remote.KindOf(err) == remote.KindNotFound {
		err = nil
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return remote.Classify("delete", errors.New("session changed"))
	}
	if err != nil {
		rerr := remote.Classify("delete", err)
		s.err = rerr
		s.phase = PhaseError
		s.mu.Unlock()
		return rerr
	}
	kept := s.items[:0]
	for _, t := range s.items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.items = kept
	s.err = nil
	s.phase = PhaseReady
	s.mu.Unlock()

	s.publish(ctx, events.NewDeleteEvent(id, owner, s.kind))
	return nil
}

// recordFailure stores the error unless the session changed since the
// operation was issued.
func (s *Store) recordFailure(gen uint64, rerr *remote.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.err = rerr
	s.phase = PhaseError
}

func (s *Store) publish(ctx context.Context, event events.Event) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, event); err != nil {
		// The mutation already succeeded; a lost event only degrades
		// the audit trail.
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"type", event.Type,
			"transaction_id", event.TransactionID,
			"error", err)
	}
}
