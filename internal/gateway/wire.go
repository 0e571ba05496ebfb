// Package gateway wires LockManager, the EventBus, the auth adapter,
// and the optional release relay into the REST, WebSocket, and SSE
// surfaces described by the external interfaces.
package gateway

import (
	"errors"

	"github.com/MarsStirner/ezekiel/internal/locks"
)

// inboundFrame is the WebSocket client→server envelope:
// {"command": "acquire"|"release"|"prolong", "object_id": "...", "token": "HEX"?}.
type inboundFrame struct {
	Command  string `json:"command"`
	ObjectID string `json:"object_id" validate:"required,max=256"`
	Token    string `json:"token,omitempty"`
}

// outboundFrame is the WebSocket/SSE server→client envelope:
// {"event": "...", "data": ...}.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// lockJSON is the wire shape of a successful Lock response.
type lockJSON struct {
	Success    bool   `json:"success"`
	ObjectID   string `json:"object_id"`
	Acquire    int64  `json:"acquire"`
	Expiration *int64 `json:"expiration"`
	Token      string `json:"token"`
	Locker     string `json:"locker"`
}

func lockToJSON(l *locks.Lock) lockJSON {
	out := lockJSON{
		Success:  true,
		ObjectID: l.ObjectID,
		Acquire:  l.AcquireTime.Unix(),
		Token:    l.Token.Hex(),
		Locker:   l.Locker,
	}
	if l.ExpirationTime != nil {
		secs := l.ExpirationTime.Unix()
		out.Expiration = &secs
	}
	return out
}

// alreadyHeldJSON is the wire shape of a LockAlreadyAcquired error.
type alreadyHeldJSON struct {
	Success   bool   `json:"success"`
	ObjectID  string `json:"object_id"`
	Acquire   int64  `json:"acquire"`
	Locker    string `json:"locker"`
	Exception string `json:"exception"`
	Message   string `json:"message"`
}

func alreadyHeldToJSON(e *locks.AlreadyHeldError) alreadyHeldJSON {
	return alreadyHeldJSON{
		Success:   false,
		ObjectID:  e.ObjectID,
		Acquire:   e.AcquireTime.Unix(),
		Locker:    e.Locker,
		Exception: "LockAlreadyAcquired",
		Message:   e.Error(),
	}
}

// notFoundJSON is the wire shape of a LockNotFound error.
type notFoundJSON struct {
	Success   bool   `json:"success"`
	ObjectID  string `json:"object_id"`
	Exception string `json:"exception"`
	Message   string `json:"message"`
}

func notFoundToJSON(e *locks.NotFoundError) notFoundJSON {
	return notFoundJSON{
		Success:   false,
		ObjectID:  e.ObjectID,
		Exception: "LockNotFound",
		Message:   e.Error(),
	}
}

// releasedJSON is the wire shape of a successful Release response.
type releasedJSON struct {
	Success  bool   `json:"success"`
	ObjectID string `json:"object_id"`
}

// errorPayload converts any error returned by the lock manager into
// its wire JSON shape, dispatching on the concrete type.
func errorPayload(objectID string, err error) any {
	var ah *locks.AlreadyHeldError
	var nf *locks.NotFoundError
	switch {
	case errors.As(err, &ah):
		return alreadyHeldToJSON(ah)
	case errors.As(err, &nf):
		return notFoundToJSON(nf)
	default:
		return notFoundJSON{Success: false, ObjectID: objectID, Exception: "Internal", Message: err.Error()}
	}
}
