package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/remote"
	"fintrack/internal/session"
)

// fakeClient is a scriptable remote.Client. Unset functions fall back to a
// small in-memory implementation keyed by id.
type fakeClient struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]core.Transaction

	listFn   func(ctx context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error)
	createFn func(ctx context.Context, draft core.Draft) (core.Transaction, error)
	updateFn func(ctx context.Context, id string, patch core.Patch, ownerID string) (core.Transaction, error)
	deleteFn func(ctx context.Context, id, ownerID string) error
}

func newFakeClient() *fakeClient {
	return &fakeClient{byID: make(map[string]core.Transaction)}
}

func (f *fakeClient) List(ctx context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ownerID, kind)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.byID {
		if t.OwnerID == ownerID && t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeClient) Create(ctx context.Context, draft core.Draft) (core.Transaction, error) {
	if f.createFn != nil {
		return f.createFn(ctx, draft)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := core.Transaction{
		ID:       string(rune('a' + f.nextID - 1)),
		OwnerID:  draft.OwnerID,
		Kind:     draft.Kind,
		Label:    draft.Label,
		Amount:   draft.Amount,
		Category: draft.Category,
		Date:     draft.Date,
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeClient) Update(ctx context.Context, id string, patch core.Patch, ownerID string) (core.Transaction, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, patch, ownerID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return core.Transaction{}, remote.NotFound("update", id)
	}
	if t.OwnerID != ownerID {
		return core.Transaction{}, remote.Forbidden("update", id)
	}
	t = patch.Apply(t)
	f.byID[id] = t
	return t, nil
}

func (f *fakeClient) Delete(ctx context.Context, id, ownerID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, ownerID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func expenseDraft(label string, amount int64, category string) core.Draft {
	return core.Draft{
		Label:    label,
		Amount:   decimal.NewFromInt(amount),
		Category: category,
	}
}

func newBoundStore(t *testing.T, client remote.Client) *Store {
	t.Helper()
	s := New(core.Expense, client, Options{})
	s.SetOwner("u1")
	return s
}

func TestLoadReplacesItemsAndSortsByDate(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
	}
	client := newFakeClient()
	client.listFn = func(context.Context, string, core.Kind) ([]core.Transaction, error) {
		return []core.Transaction{
			{ID: "old", OwnerID: "u1", Kind: core.Expense, Date: day(1)},
			{ID: "new", OwnerID: "u1", Kind: core.Expense, Date: day(9)},
			{ID: "mid", OwnerID: "u1", Kind: core.Expense, Date: day(5)},
		}, nil
	}
	s := newBoundStore(t, client)
	s.Load(context.Background())

	snap := s.Snapshot()
	if snap.Loading || snap.Err != nil || snap.Phase != PhaseReady {
		t.Fatalf("unexpected state after load: %+v", snap)
	}
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if snap.Items[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, snap.Items[i].ID)
		}
	}
}

func TestLoadFailureKeepsPriorItems(t *testing.T) {
	client := newFakeClient()
	s := newBoundStore(t, client)
	if _, err := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing")); err != nil {
		t.Fatalf("add: %v", err)
	}

	client.listFn = func(context.Context, string, core.Kind) ([]core.Transaction, error) {
		return nil, errors.New("connection refused")
	}
	s.Load(context.Background())

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("prior items lost on failed load: %d items", len(snap.Items))
	}
	if snap.Err == nil || snap.Err.Kind != remote.KindNetwork {
		t.Fatalf("expected network error, got %+v", snap.Err)
	}
	if snap.Phase != PhaseError || snap.Loading {
		t.Fatalf("unexpected state: %+v", snap)
	}

	// The next successful load clears the error wholesale.
	client.listFn = nil
	s.Load(context.Background())
	snap = s.Snapshot()
	if snap.Err != nil || snap.Phase != PhaseReady {
		t.Fatalf("error not cleared by successful load: %+v", snap)
	}
}

func TestLoadWithoutOwnerIsNoop(t *testing.T) {
	s := New(core.Expense, newFakeClient(), Options{})
	s.Load(context.Background())
	snap := s.Snapshot()
	if snap.Phase != PhaseIdle || snap.Loading || len(snap.Items) != 0 {
		t.Fatalf("unbound load changed state: %+v", snap)
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	client := newFakeClient()
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	calls := 0
	client.listFn = func(ctx context.Context, owner string, kind core.Kind) ([]core.Transaction, error) {
		calls++
		if calls == 1 {
			close(firstStarted)
			<-releaseFirst
			return []core.Transaction{{ID: "stale", OwnerID: owner, Kind: kind}}, nil
		}
		return []core.Transaction{{ID: "fresh", OwnerID: owner, Kind: kind}}, nil
	}

	s := newBoundStore(t, client)
	done := make(chan struct{})
	go func() {
		s.Load(context.Background())
		close(done)
	}()
	<-firstStarted

	s.Load(context.Background()) // newer load settles first
	close(releaseFirst)
	<-done

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "fresh" {
		t.Fatalf("stale response overwrote newer state: %+v", snap.Items)
	}
}

func TestSessionSwitchDiscardsInFlightLoad(t *testing.T) {
	client := newFakeClient()
	aStarted := make(chan struct{})
	releaseA := make(chan struct{})
	client.listFn = func(ctx context.Context, owner string, kind core.Kind) ([]core.Transaction, error) {
		if owner == "userA" {
			close(aStarted)
			<-releaseA
			return []core.Transaction{{ID: "a1", OwnerID: owner, Kind: kind}}, nil
		}
		return []core.Transaction{{ID: "b1", OwnerID: owner, Kind: kind}}, nil
	}

	s := New(core.Expense, client, Options{})
	s.SetOwner("userA")
	done := make(chan struct{})
	go func() {
		s.Load(context.Background())
		close(done)
	}()
	<-aStarted

	// Session switches to user B before A's response arrives.
	s.SetOwner("userB")
	s.Load(context.Background())
	close(releaseA)
	<-done

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].OwnerID != "userB" {
		t.Fatalf("previous user's data leaked into new session: %+v", snap.Items)
	}
}

func TestAddPrependsConfirmedRecord(t *testing.T) {
	s := newBoundStore(t, newFakeClient())

	first, err := s.Add(context.Background(), expenseDraft("Groceries", 40, "Food"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID == "" {
		t.Fatal("confirmed record has no id")
	}
	if first.OwnerID != "u1" || first.Kind != core.Expense {
		t.Fatalf("owner and kind not bound: %+v", first)
	}

	second, err := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 2 || snap.Items[0].ID != second.ID || snap.Items[1].ID != first.ID {
		t.Fatalf("newest record not at head: %+v", snap.Items)
	}
	if snap.Err != nil || snap.Phase != PhaseReady {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestAddValidationFailureLeavesItems(t *testing.T) {
	s := newBoundStore(t, newFakeClient())
	if _, err := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing")); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := s.Add(context.Background(), expenseDraft("", 10, "Food"))
	if remote.KindOf(err) != remote.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("failed add changed items: %+v", snap.Items)
	}
	if snap.Err == nil || snap.Err.Kind != remote.KindValidation {
		t.Fatalf("error not recorded in state: %+v", snap.Err)
	}
}

func TestAddWithoutUserFails(t *testing.T) {
	s := New(core.Expense, newFakeClient(), Options{})
	_, err := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing"))
	if remote.KindOf(err) != remote.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRemoteFailureLeavesItems(t *testing.T) {
	client := newFakeClient()
	s := newBoundStore(t, client)
	if _, err := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing")); err != nil {
		t.Fatalf("add: %v", err)
	}

	client.createFn = func(context.Context, core.Draft) (core.Transaction, error) {
		return core.Transaction{}, errors.New("boom")
	}
	if _, err := s.Add(context.Background(), expenseDraft("Coffee", 3, "Food")); err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("failed add changed items: %+v", snap.Items)
	}
	if snap.Err == nil || snap.Err.Kind != remote.KindNetwork {
		t.Fatalf("expected network error in state, got %+v", snap.Err)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	s := newBoundStore(t, newFakeClient())
	first, _ := s.Add(context.Background(), expenseDraft("Groceries", 40, "Food"))
	second, _ := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing"))

	amount := decimal.NewFromInt(55)
	updated, err := s.Update(context.Background(), first.ID, core.Patch{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Amount.Equal(amount) {
		t.Fatalf("patch not applied: %+v", updated)
	}

	snap := s.Snapshot()
	// Position preserved: second is still at head, first stays where it was.
	if snap.Items[0].ID != second.ID || snap.Items[1].ID != first.ID {
		t.Fatalf("update moved items: %+v", snap.Items)
	}
	if !snap.Items[1].Amount.Equal(amount) {
		t.Fatalf("updated amount not visible: %+v", snap.Items[1])
	}
}

func TestUpdateUnknownLocalIDAppends(t *testing.T) {
	client := newFakeClient()
	s := newBoundStore(t, client)
	created, _ := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing"))

	// Simulate a reload that lost the record locally while the server
	// still has it.
	s.SetOwner("u1")
	label := "Rent (updated)"
	if _, err := s.Update(context.Background(), created.ID, core.Patch{Label: &label}); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != created.ID || snap.Items[0].Label != label {
		t.Fatalf("server-confirmed record dropped: %+v", snap.Items)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newBoundStore(t, newFakeClient())
	_, err := s.Update(context.Background(), "nope", core.Patch{})
	if remote.KindOf(err) != remote.KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
	if snap := s.Snapshot(); snap.Err == nil || snap.Err.Kind != remote.KindNotFound {
		t.Fatalf("error not recorded: %+v", snap.Err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newBoundStore(t, newFakeClient())
	created, _ := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing"))

	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 0 {
		t.Fatalf("record not removed: %+v", snap.Items)
	}
	if !aggregate.Total(snap.Items).IsZero() {
		t.Fatalf("total not reduced: %s", aggregate.Total(snap.Items))
	}

	// Deleting again is a no-op success, even if the remote reports
	// not-found.
	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	client := newFakeClient()
	client.deleteFn = func(ctx context.Context, id, owner string) error {
		return remote.NotFound("delete", id)
	}
	s2 := newBoundStore(t, client)
	if err := s2.Delete(context.Background(), "gone"); err != nil {
		t.Fatalf("not-found delete should succeed: %v", err)
	}
	if snap := s2.Snapshot(); snap.Err != nil {
		t.Fatalf("idempotent delete errored the store: %+v", snap.Err)
	}
}

func TestMutationsApplyInIssueOrder(t *testing.T) {
	client := newFakeClient()
	addStarted := make(chan struct{})
	releaseAdd := make(chan struct{})
	var order []string
	var orderMu sync.Mutex
	record := func(op string) {
		orderMu.Lock()
		order = append(order, op)
		orderMu.Unlock()
	}
	client.createFn = func(ctx context.Context, draft core.Draft) (core.Transaction, error) {
		close(addStarted)
		<-releaseAdd // the add resolves late
		record("create")
		return core.Transaction{ID: "x", OwnerID: draft.OwnerID, Kind: draft.Kind, Label: draft.Label}, nil
	}
	client.deleteFn = func(ctx context.Context, id, owner string) error {
		record("delete")
		return nil
	}

	s := newBoundStore(t, client)
	addDone := make(chan struct{})
	go func() {
		s.Add(context.Background(), expenseDraft("Slow", 1, ""))
		close(addDone)
	}()
	<-addStarted

	deleteDone := make(chan struct{})
	go func() {
		s.Delete(context.Background(), "x")
		close(deleteDone)
	}()

	// The delete was issued second and must wait for the add.
	select {
	case <-deleteDone:
		t.Fatal("delete overtook the in-flight add")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseAdd)
	<-addDone
	<-deleteDone

	orderMu.Lock()
	defer orderMu.Unlock()
	if len(order) != 2 || order[0] != "create" || order[1] != "delete" {
		t.Fatalf("operations applied out of issue order: %v", order)
	}
	if snap := s.Snapshot(); len(snap.Items) != 0 {
		t.Fatalf("delete clobbered by earlier add: %+v", snap.Items)
	}
}

func TestTotalTracksMutations(t *testing.T) {
	s := newBoundStore(t, newFakeClient())
	ctx := context.Background()

	rent, _ := s.Add(ctx, expenseDraft("Rent", 500, "Housing"))
	s.Add(ctx, expenseDraft("Food", 40, "Food"))
	s.Add(ctx, expenseDraft("Transit", 7, "Transit"))

	if got := aggregate.Total(s.Snapshot().Items); !got.Equal(decimal.NewFromInt(547)) {
		t.Fatalf("expected 547, got %s", got)
	}

	s.Delete(ctx, rent.ID)
	if got := aggregate.Total(s.Snapshot().Items); !got.Equal(decimal.NewFromInt(47)) {
		t.Fatalf("total did not decrease by 500: %s", got)
	}
}

func TestBindFollowsSessionLifecycle(t *testing.T) {
	client := newFakeClient()
	sess := session.New()
	s := New(core.Expense, client, Options{})
	unbind := s.Bind(context.Background(), sess)
	defer unbind()

	if s.OwnerID() != "" {
		t.Fatal("store bound before login")
	}

	sess.SetUser(session.User{ID: "u1"})
	if s.OwnerID() != "u1" {
		t.Fatalf("store not rebound on login: %q", s.OwnerID())
	}

	// Seed a record and reload so the collection is non-empty.
	if _, err := s.Add(context.Background(), expenseDraft("Rent", 500, "Housing")); err != nil {
		t.Fatalf("add: %v", err)
	}

	sess.Clear()
	if s.OwnerID() != "" {
		t.Fatal("store still bound after logout")
	}
	snap := s.Snapshot()
	if len(snap.Items) != 0 || snap.Phase != PhaseIdle {
		t.Fatalf("state not discarded on logout: %+v", snap)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestMutationsPublishEvents(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(core.Expense, newFakeClient(), Options{Publisher: pub})
	s.SetOwner("u1")
	ctx := context.Background()

	created, _ := s.Add(ctx, expenseDraft("Rent", 500, "Housing"))
	label := "Rent 2"
	s.Update(ctx, created.ID, core.Patch{Label: &label})
	s.Delete(ctx, created.ID)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	want := []string{events.TypeCreated, events.TypeUpdated, events.TypeDeleted}
	if len(pub.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pub.events))
	}
	for i, typ := range want {
		if pub.events[i].Type != typ {
			t.Errorf("event %d: expected %s, got %s", i, typ, pub.events[i].Type)
		}
		if pub.events[i].TransactionID != created.ID {
			t.Errorf("event %d: wrong transaction id %s", i, pub.events[i].TransactionID)
		}
	}
}
