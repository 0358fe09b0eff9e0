package storage

import (
	"errors"
	"slices"
	"sync"

	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
)

// Capacity is the number of slots in an editing session
const Capacity = 6

var (
	ErrFull     = errors.New("session is full")
	ErrNotFound = errors.New("entry not found")
)

// Snapshot is an immutable view of the session. Its Entries slice is never
// modified after it is published.
type Snapshot struct {
	Version uint64
	Entries []models.Entry
}

// SessionStore holds the ordered entries of one editing session. Every
// change publishes a new Snapshot to subscribers.
type SessionStore struct {
	mu       sync.RWMutex
	snap     Snapshot
	capacity int
	subs     map[int]chan Snapshot
	nextSub  int
}

func New() *SessionStore {
	return &SessionStore{
		capacity: Capacity,
		subs:     make(map[int]chan Snapshot),
	}
}

func (s *SessionStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *SessionStore) Get(id string) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.snap.Entries[i], true
	}
	return models.Entry{}, false
}

// Add appends as many entries as there are free slots. When some entries
// do not fit, the accepted ones are returned together with ErrFull.
func (s *SessionStore) Add(entries ...models.Entry) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	free := s.capacity - len(s.snap.Entries)
	accepted := entries[:min(len(entries), max(free, 0))]
	if len(accepted) > 0 {
		next := make([]models.Entry, 0, len(s.snap.Entries)+len(accepted))
		next = append(next, s.snap.Entries...)
		next = append(next, accepted...)
		s.publish(next)
	}

	if len(accepted) < len(entries) {
		return slices.Clone(accepted), ErrFull
	}
	return slices.Clone(accepted), nil
}

// Update applies fn to a copy of the entry and stores the result. If fn
// returns an error nothing is stored and the error is returned.
func (s *SessionStore) Update(id string, fn func(*models.Entry) error) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Entry{}, ErrNotFound
	}

	updated := s.snap.Entries[i]
	if err := fn(&updated); err != nil {
		return models.Entry{}, err
	}

	next := slices.Clone(s.snap.Entries)
	next[i] = updated
	s.publish(next)
	return updated, nil
}

// Replace swaps the entry with the given id for e, keeping its position.
func (s *SessionStore) Replace(id string, e models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}

	next := slices.Clone(s.snap.Entries)
	next[i] = e
	s.publish(next)
	return nil
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}

	next := slices.Delete(slices.Clone(s.snap.Entries), i, i+1)
	s.publish(next)
	return nil
}

func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(nil)
}

// Subscribe returns a channel that receives the current snapshot and then
// the latest snapshot after each change. Slow readers skip intermediate
// snapshots. The returned func unsubscribes and closes the channel.
func (s *SessionStore) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snap

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// publish must be called with mu held.
func (s *SessionStore) publish(entries []models.Entry) {
	s.snap = Snapshot{Version: s.snap.Version + 1, Entries: entries}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.snap
	}
}

func (s *SessionStore) index(id string) int {
	return slices.IndexFunc(s.snap.Entries, func(e models.Entry) bool {
		return e.ID == id
	})
}
