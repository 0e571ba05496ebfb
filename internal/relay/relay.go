// Package relay implements the optional downstream message-bus mirror
// described in the system's external interfaces: every successful
// Release may be mirrored as {"topic":"ezekiel.lock.release",
// "data":{"object_id":...}} to a collaborator outside this process.
// Absence of a configured relay is silently ignored by the lock
// manager; this package exists to provide a concrete, real one.
package relay

import "context"

// Noop implements locks.Relay by doing nothing. It is the default when
// no relay is configured.
type Noop struct{}

// Publish implements locks.Relay.
func (Noop) Publish(context.Context, string) error { return nil }
