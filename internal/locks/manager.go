package locks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MarsStirner/ezekiel/internal/eventbus"
)

// entry is one LockTable row: the lock itself plus its timer handle,
// present iff the lock is temporary.
type entry struct {
	lock  *Lock
	timer *time.Timer
}

// Manager is the single-writer lock table described by the system's
// core invariants: at most one Lock per object id, a live timer on
// every temporary lock, and a serialized acquired/released event
// stream observed by every subscriber in mutation order.
//
// All table mutations happen under mu. I/O — event delivery, relay
// publication — happens after mu is released, per the suspension-point
// rule: compute the transition under the lock, then dispatch.
type Manager struct {
	mu    sync.Mutex
	table map[string]*entry

	shortTimeout time.Duration
	longTimeout  time.Duration

	acquired *eventbus.Bus[*Lock]
	released *eventbus.Bus[*Lock]

	observer Observer
	relay    Relay
	logger   *slog.Logger
}

// New constructs a Manager with the given options applied over the
// package defaults.
func New(opts ...Option) *Manager {
	m := &Manager{
		table:        make(map[string]*entry),
		shortTimeout: DefaultShortTimeout,
		longTimeout:  DefaultLongTimeout,
		acquired:     eventbus.New[*Lock](),
		released:     eventbus.New[*Lock](),
		observer:     noopObserver{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShortTimeout returns the configured temporary-lock TTL.
func (m *Manager) ShortTimeout() time.Duration { return m.shortTimeout }

// LongTimeout returns the configured pull-mode prolongation period.
func (m *Manager) LongTimeout() time.Duration { return m.longTimeout }

// SubscribeAcquired registers a listener for acquired events. The
// returned cancel func must be called on teardown to avoid leaking the
// subscription; calls after the first are no-ops.
func (m *Manager) SubscribeAcquired() (<-chan *Lock, func()) {
	return m.acquired.Subscribe()
}

// SubscribeReleased registers a listener for released events.
func (m *Manager) SubscribeReleased() (<-chan *Lock, func()) {
	return m.released.Subscribe()
}

// AcquireExclusive creates a PERMANENT lock if object_id is free, or
// fails with *AlreadyHeldError carrying the current holder's snapshot.
// There is no auto-prolongation on conflict.
func (m *Manager) AcquireExclusive(objectID, locker string) (*Lock, error) {
	m.mu.Lock()
	if e, ok := m.table[objectID]; ok {
		snapshot := e.lock.clone()
		m.mu.Unlock()
		m.observer.Rejected()
		return nil, &AlreadyHeldError{ObjectID: snapshot.ObjectID, AcquireTime: snapshot.AcquireTime, Locker: snapshot.Locker}
	}

	token, err := NewToken()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	lock := &Lock{
		ObjectID:    objectID,
		Token:       token,
		Locker:      locker,
		AcquireTime: time.Now(),
		Kind:        KindPermanent,
	}
	m.table[objectID] = &entry{lock: lock}
	m.mu.Unlock()

	m.observer.Acquired(KindPermanent)
	m.acquired.Publish(lock.clone())
	return lock.clone(), nil
}

// AcquireTemporary creates a TEMPORARY lock with a timer scheduled to
// auto-release it at now+ShortTimeout. A repeated call from the same
// locker on an already-held object is treated as a Prolong, making
// same-holder reacquire idempotent. Any other conflict fails with
// *AlreadyHeldError.
func (m *Manager) AcquireTemporary(objectID, locker string) (*Lock, error) {
	m.mu.Lock()
	if e, ok := m.table[objectID]; ok {
		if e.lock.Locker == locker {
			lock, err := m.prolongLocked(e, e.lock.Token)
			m.mu.Unlock()
			return lock, err
		}
		snapshot := e.lock.clone()
		m.mu.Unlock()
		m.observer.Rejected()
		return nil, &AlreadyHeldError{ObjectID: snapshot.ObjectID, AcquireTime: snapshot.AcquireTime, Locker: snapshot.Locker}
	}

	token, err := NewToken()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	now := time.Now()
	expiration := now.Add(m.shortTimeout)
	lock := &Lock{
		ObjectID:       objectID,
		Token:          token,
		Locker:         locker,
		AcquireTime:    now,
		ExpirationTime: &expiration,
		Kind:           KindTemporary,
	}
	e := &entry{lock: lock}
	e.timer = time.AfterFunc(m.shortTimeout, func() { m.expire(objectID, token) })
	m.table[objectID] = e
	m.mu.Unlock()

	m.observer.Acquired(KindTemporary)
	m.acquired.Publish(lock.clone())
	return lock.clone(), nil
}

// Prolong extends a held lock's expiration and resets its timer. It
// never emits acquired/released events. A PERMANENT lock accepts
// Prolong as a no-op timer reset (there is no timer) but still stamps
// ExpirationTime for observers — see DESIGN.md for the reasoning.
func (m *Manager) Prolong(objectID string, token Token) (*Lock, error) {
	m.mu.Lock()
	e, ok := m.table[objectID]
	if !ok {
		m.mu.Unlock()
		return nil, &NotFoundError{ObjectID: objectID}
	}
	lock, err := m.prolongLocked(e, token)
	m.mu.Unlock()
	return lock, err
}

// prolongLocked must be called with mu held. On a token mismatch it
// returns *AlreadyHeldError identifying the actual holder — Prolong
// overloads "already acquired" to mean "you don't own this", unlike
// Release's opaque NotFound policy.
func (m *Manager) prolongLocked(e *entry, token Token) (*Lock, error) {
	if e.lock.Token != token {
		snapshot := e.lock.clone()
		return nil, &AlreadyHeldError{ObjectID: snapshot.ObjectID, AcquireTime: snapshot.AcquireTime, Locker: snapshot.Locker}
	}
	expiration := time.Now().Add(m.shortTimeout)
	e.lock.ExpirationTime = &expiration
	if e.timer != nil {
		e.timer.Reset(m.shortTimeout)
	}
	return e.lock.clone(), nil
}

// Release removes object_id's entry if token matches, cancels its
// timer, and emits released. A missing entry or a token mismatch both
// report NotFoundError — Release never reveals that an object is held
// by someone else.
func (m *Manager) Release(objectID string, token Token) (*Lock, error) {
	m.mu.Lock()
	e, ok := m.table[objectID]
	if !ok || e.lock.Token != token {
		m.mu.Unlock()
		return nil, &NotFoundError{ObjectID: objectID}
	}
	delete(m.table, objectID)
	if e.timer != nil {
		e.timer.Stop()
	}
	removed := e.lock
	m.mu.Unlock()

	m.finishRelease(removed)
	return removed.clone(), nil
}

// expire is the timer callback for a temporary lock. It races with
// explicit Release and with a replacing acquire; both are resolved by
// checking token equality under mu, so a stale firing is a no-op.
func (m *Manager) expire(objectID string, token Token) {
	m.mu.Lock()
	e, ok := m.table[objectID]
	if !ok || e.lock.Token != token {
		m.mu.Unlock()
		return
	}
	delete(m.table, objectID)
	removed := e.lock
	m.mu.Unlock()

	m.finishRelease(removed)
}

// finishRelease dispatches the released event and the optional relay
// mirror for a lock that has just left the table. Relay failures are
// logged and swallowed; they never make Release/expire fail.
func (m *Manager) finishRelease(removed *Lock) {
	m.observer.Released(removed.Kind)
	m.released.Publish(removed.clone())

	if m.relay == nil {
		return
	}
	go func(objectID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.relay.Publish(ctx, objectID); err != nil && m.logger != nil {
			m.logger.Warn("lock release relay publish failed", "object_id", objectID, "error", err)
		}
	}(removed.ObjectID)
}

// Snapshot returns the current lock for an object id, if any, for
// read-only inspection (status endpoints, tests). It never mutates the
// table.
func (m *Manager) Snapshot(objectID string) (*Lock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.table[objectID]
	if !ok {
		return nil, false
	}
	return e.lock.clone(), true
}

// Len returns the number of held locks, for metrics/tests.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table)
}
