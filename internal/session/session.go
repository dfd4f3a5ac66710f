// Package session tracks the currently authenticated user and notifies
// subscribers when the identity changes. Credential verification is out of
// scope; callers set and clear the identity explicitly.
package session

import "sync"

// User is the identity exposed to the rest of the application.
type User struct {
	ID    string
	Name  string
	Email string
}

// Session holds the current user, if any. The zero-value-adjacent New()
// session starts with no user. All methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	user   *User
	nextID int
	subs   map[int]func(*User)
}

func New() *Session {
	return &Session{subs: make(map[int]func(*User))}
}

// NewWithUser starts a session already bound to a user, mirroring an
// identity restored from a previous run.
func NewWithUser(u User) *Session {
	s := New()
	s.user = &u
	return s
}

// Current returns a copy of the current user, or nil when logged out.
func (s *Session) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// CurrentUserID returns the current user's id, or "" when logged out.
func (s *Session) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// SetUser switches the session to the given user. Subscribers are notified
// only when the identity actually changes; re-setting the same user id is
// a no-op for them.
func (s *Session) SetUser(u User) {
	s.mu.Lock()
	if s.user != nil && s.user.ID == u.ID {
		s.user = &u // refresh name/email without a lifecycle event
		s.mu.Unlock()
		return
	}
	s.user = &u
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		copied := u
		fn(&copied)
	}
}

// Clear logs the user out and notifies subscribers with nil.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	s.user = nil
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

// Subscribe registers fn to run on every identity change. The callback
// receives the new user, or nil on logout, and runs synchronously on the
// goroutine performing the change. The returned function unsubscribes.
func (s *Session) Subscribe(fn func(*User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// snapshotSubs copies the subscriber list in registration order so
// callbacks run without holding the session lock. Caller must hold mu.
func (s *Session) snapshotSubs() []func(*User) {
	out := make([]func(*User), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
