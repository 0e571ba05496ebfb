// Package locks implements the in-memory lock table: the single-writer
// lock manager that grants, prolongs, and releases exclusive advisory
// locks on opaque object ids.
package locks

import "time"

// Kind distinguishes timeout-bounded locks from session-bounded ones.
type Kind int

const (
	// KindPermanent locks have no timer; they live until an explicit
	// Release or session teardown removes them.
	KindPermanent Kind = iota
	// KindTemporary locks carry a timer that auto-releases them at
	// ExpirationTime unless prolonged first.
	KindTemporary
)

func (k Kind) String() string {
	if k == KindTemporary {
		return "temporary"
	}
	return "permanent"
}

// Lock is one entry in the lock table. ExpirationTime is nil for
// permanent locks; Prolong may still stamp it for observability (see
// Manager.Prolong), but no timer is ever attached to a permanent lock.
type Lock struct {
	ObjectID       string
	Token          Token
	Locker         string
	AcquireTime    time.Time
	ExpirationTime *time.Time
	Kind           Kind
}

// clone returns a value copy safe to hand to callers outside the
// manager's mutex, including the ExpirationTime pointer which is
// replaced with a fresh pointer so callers can't mutate shared state.
func (l *Lock) clone() *Lock {
	if l == nil {
		return nil
	}
	cp := *l
	if l.ExpirationTime != nil {
		t := *l.ExpirationTime
		cp.ExpirationTime = &t
	}
	return &cp
}
