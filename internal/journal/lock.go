package journal

import (
	"sync"

	"github.com/google/uuid"
)

// tenantLocks serializes writers per tenant. Entries are dropped when the
// last holder releases them.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*tenantLock
}

type tenantLock struct {
	sync.Mutex
	refs int
}

// lock blocks until the tenant's lock is held and returns its release func.
func (l *tenantLocks) lock(tenantID uuid.UUID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*tenantLock)
	}
	tl, ok := l.locks[tenantID]
	if !ok {
		tl = &tenantLock{}
		l.locks[tenantID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, tenantID)
		}
		l.mu.Unlock()
	}
}
