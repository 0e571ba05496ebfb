package locks

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyHeld and ErrNotFound are the sentinels callers should match
// with errors.Is; AlreadyHeldError and NotFoundError carry the detail
// the streaming/REST layers surface to clients.
var (
	ErrAlreadyHeld = errors.New("locks: already held")
	ErrNotFound    = errors.New("locks: not found")
)

// AlreadyHeldError reports a conflicting holder for AcquireExclusive,
// AcquireTemporary, and a token-mismatched Prolong.
type AlreadyHeldError struct {
	ObjectID    string
	AcquireTime time.Time
	Locker      string
}

func (e *AlreadyHeldError) Error() string {
	return fmt.Sprintf("locks: object %q already held by %q since %s", e.ObjectID, e.Locker, e.AcquireTime.Format(time.RFC3339))
}

func (e *AlreadyHeldError) Is(target error) bool { return target == ErrAlreadyHeld }

// NotFoundError reports that no lock exists for an object id, or that
// a token didn't match — the two cases are deliberately conflated so
// Release never reveals whether an object is held by someone else.
type NotFoundError struct {
	ObjectID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("locks: no lock for object %q", e.ObjectID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
