// Package worker consumes ledger events off the queue and turns them into
// a structured audit trail.
package worker

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/events"
	applog "fintrack/internal/log"
)

// Auditor logs every ledger mutation event and keeps per-owner counters
// for the worker's own reporting.
type Auditor struct {
	logger *applog.Logger

	mu     sync.Mutex
	counts map[string]map[string]int // owner -> event type -> count
}

func NewAuditor(logger *applog.Logger) *Auditor {
	return &Auditor{
		logger: logger.WithComponent(applog.ComponentWorker),
		counts: make(map[string]map[string]int),
	}
}

// Handle processes one event. It never fails on content: an event we do
// not recognize is logged and acknowledged rather than requeued forever.
func (a *Auditor) Handle(ctx context.Context, event events.Event) error {
	if event.TransactionID == "" || event.OwnerID == "" {
		return fmt.Errorf("event missing identity: type=%s", event.Type)
	}

	a.record(event)

	fields := applog.NewFields().
		WithTransaction(event.TransactionID, event.OwnerID, event.Kind).
		WithOperation(applog.OpConsume)
	fields[applog.FieldEventType] = event.Type
	if event.Amount != "" {
		fields[applog.FieldAmount] = event.Amount
	}
	if event.Category != "" {
		fields[applog.FieldCategory] = event.Category
	}

	a.logger.InfoContext(ctx, "Ledger event", fields.ToSlice()...)
	return nil
}

func (a *Auditor) record(event events.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	byType := a.counts[event.OwnerID]
	if byType == nil {
		byType = make(map[string]int)
		a.counts[event.OwnerID] = byType
	}
	byType[event.Type]++
}

// Counts returns a copy of the per-owner event counters.
func (a *Auditor) Counts(ownerID string) map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int, len(a.counts[ownerID]))
	for t, n := range a.counts[ownerID] {
		out[t] = n
	}
	return out
}
