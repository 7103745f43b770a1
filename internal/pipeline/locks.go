package pipeline

import "sync"

// userLocks hands out one mutex per active user. Locks are created lazily
// and removed once the last holder or waiter releases them, so an
// unbounded user set does not pin memory forever.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// acquire blocks until the caller holds the lock for userID.
func (l *userLocks) acquire(userID string) {
	l.mu.Lock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &userLock{}
		l.locks[userID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
}

// release drops the lock for userID, evicting the entry when nobody else
// holds or waits on it.
func (l *userLocks) release(userID string) {
	l.mu.Lock()
	lk := l.locks[userID]
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()

	lk.mu.Unlock()
}

// active returns the number of users currently holding or waiting.
func (l *userLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
