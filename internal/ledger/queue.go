package ledger

import "sync"

// fifoQueue serializes operations in strict issue order. Each caller takes
// a ticket chained to its predecessor, so results apply in the order the
// operations were started, not the order their remote calls settle.
type fifoQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// enter blocks until every earlier ticket has been released, then returns
// the release function for this caller's ticket.
func (q *fifoQueue) enter() (release func()) {
	q.mu.Lock()
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	q.mu.Unlock()

	if prev != nil {
		<-prev
	}
	return func() { close(done) }
}
