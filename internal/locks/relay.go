package locks

import "context"

// Relay mirrors a successful Release to a downstream collaborator, per
// the optional message-bus described in the system's external
// interfaces. A nil Relay (or one that always errs) must never affect
// Release's own success/failure.
type Relay interface {
	Publish(ctx context.Context, objectID string) error
}
