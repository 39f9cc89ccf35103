package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"fetchbot/internal/media"
)

// Session is the ephemeral record for one identity.
type Session struct {
	SourceURL  string
	Descriptor *media.Descriptor
	Platform   string // Human-readable platform name
	UserRef    int64  // Durable user row id, 0 when unknown
	State      State

	gen uint64
}

type entry struct {
	id      int64
	sess    *Session
	expires time.Time
	elem    *list.Element
}

// Store keeps at most one session per identity, bounded in size and age.
// A new Put for an identity replaces its previous session.
type Store struct {
	ttl time.Duration
	max int
	now func() time.Time

	mu     sync.Mutex
	gen    uint64
	claims map[int64]uint64 // latest pending submission per identity
	items  map[int64]*entry
	order  *list.List // oldest first
}

// NewStore creates a store whose sessions live for ttl and which holds at
// most max sessions, evicting the oldest first.
func NewStore(ttl time.Duration, max int) *Store {
	return &Store{
		ttl:    ttl,
		max:    max,
		now:    time.Now,
		claims: make(map[int64]uint64),
		items:  make(map[int64]*entry),
		order:  list.New(),
	}
}

// Claim reserves a ticket for a submission from id that has just arrived.
// Only the most recent claim for an identity may install a session, so a
// slow resolution never replaces the result of a later submission.
func (st *Store) Claim(id int64) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.gen++
	st.claims[id] = st.gen
	return st.gen
}

// Release drops ticket if it is still the latest claim for id. It is a
// no-op once the claim was used by PutClaimed or superseded.
func (st *Store) Release(id int64, ticket uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.claims[id] == ticket {
		delete(st.claims, id)
	}
}

// PutClaimed stores s for id in AwaitingType when ticket is still the latest
// claim for id, replacing any previous session. It reports false when a
// newer submission claimed the identity in the meantime.
func (st *Store) PutClaimed(id int64, ticket uint64, s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.claims[id] != ticket {
		return false
	}
	delete(st.claims, id)
	st.putLocked(id, ticket, s)
	return true
}

// Put stores s for id in AwaitingType, replacing any previous session.
func (st *Store) Put(id int64, s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.gen++
	delete(st.claims, id)
	st.putLocked(id, st.gen, s)
}

func (st *Store) putLocked(id int64, gen uint64, s *Session) {
	s.State = AwaitingType
	s.gen = gen
	st.removeLocked(id)
	e := &entry{id: id, sess: s, expires: st.now().Add(st.ttl)}
	e.elem = st.order.PushBack(e)
	st.items[id] = e

	for len(st.items) > st.max {
		oldest := st.order.Front().Value.(*entry)
		st.removeLocked(oldest.id)
	}
}

// Get returns a copy of the live session for id.
func (st *Store) Get(id int64) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.liveLocked(id)
	if !ok {
		return Session{}, false
	}
	return *e.sess, true
}

// Advance applies ev to the session for id and returns the session as it
// was before the event together with the transition taken. A missing or
// expired session yields ErrExpired.
func (st *Store) Advance(id int64, ev Event) (Session, Transition, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.liveLocked(id)
	if !ok {
		return Session{}, Transition{}, ErrExpired
	}

	before := *e.sess
	t, err := Step(e.sess.State, ev, len(e.sess.Descriptor.Variants) > 0)
	if err != nil {
		return before, Transition{}, err
	}
	e.sess.State = t.Next
	return before, t, nil
}

// Finish removes the session s (as returned by Advance) once delivery has
// ended, unless a newer submission has already replaced it.
func (st *Store) Finish(id int64, s Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if e, ok := st.items[id]; ok && e.sess.gen == s.gen {
		st.removeLocked(id)
	}
}

// Delete removes the session for id, if any.
func (st *Store) Delete(id int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.removeLocked(id)
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}

// Sweep removes expired sessions and returns how many were removed.
// Sessions that are delivering are kept until Finish.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for el := st.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.sess.State != Delivering && now.After(e.expires) {
			st.removeLocked(e.id)
			removed++
		}
		el = next
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *Store) liveLocked(id int64) (*entry, bool) {
	e, ok := st.items[id]
	if !ok {
		return nil, false
	}
	if e.sess.State != Delivering && st.now().After(e.expires) {
		st.removeLocked(id)
		return nil, false
	}
	return e, true
}

func (st *Store) removeLocked(id int64) {
	if e, ok := st.items[id]; ok {
		st.order.Remove(e.elem)
		delete(st.items, id)
	}
}
