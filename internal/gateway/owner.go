package gateway

import (
	"sync"

	"github.com/MarsStirner/ezekiel/internal/locks"
)

// ownedLocks tracks the locks and wait set a single streaming session
// holds, mirroring the source's per-connection owned/waiting state.
// Mutations are serialized by a private mutex so the EventBus
// retry-on-release goroutine and the inbound command goroutine never
// race on the same session.
type ownedLocks struct {
	mu      sync.Mutex
	owned   map[string]*locks.Lock
	waiting map[string]struct{}
}

func newOwnedLocks() *ownedLocks {
	return &ownedLocks{
		owned:   make(map[string]*locks.Lock),
		waiting: make(map[string]struct{}),
	}
}

func (o *ownedLocks) add(l *locks.Lock) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owned[l.ObjectID] = l
	delete(o.waiting, l.ObjectID)
}

func (o *ownedLocks) remove(objectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.owned, objectID)
}

func (o *ownedLocks) wait(objectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waiting[objectID] = struct{}{}
}

// stopWaiting drops objectID from both the owned and waiting sets,
// regardless of which (if either) it's currently in. release must call
// this instead of remove alone, so a client that releases an object it
// was only waiting on (never actually acquired) doesn't leave a stale
// waiting entry that triggers a retry on the next released event.
func (o *ownedLocks) stopWaiting(objectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.owned, objectID)
	delete(o.waiting, objectID)
}

func (o *ownedLocks) isWaiting(objectID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.waiting[objectID]
	return ok
}

// snapshot returns the currently owned locks, for teardown.
func (o *ownedLocks) snapshot() []*locks.Lock {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*locks.Lock, 0, len(o.owned))
	for _, l := range o.owned {
		out = append(out, l)
	}
	return out
}

func (o *ownedLocks) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owned = make(map[string]*locks.Lock)
	o.waiting = make(map[string]struct{})
}
