package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/MarsStirner/ezekiel/internal/locks"
)

func TestLockToJSONOmitsExpirationForPermanent(t *testing.T) {
	lock := &locks.Lock{ObjectID: "a", Locker: "alice", AcquireTime: time.Now(), Kind: locks.KindPermanent}
	got := lockToJSON(lock)
	if got.Expiration != nil {
		t.Fatalf("Expiration = %v, want nil for a permanent lock", got.Expiration)
	}
	if !got.Success || got.ObjectID != "a" || got.Locker != "alice" {
		t.Fatalf("unexpected lockJSON: %+v", got)
	}
}

func TestLockToJSONIncludesExpirationForTemporary(t *testing.T) {
	exp := time.Now().Add(time.Minute)
	lock := &locks.Lock{ObjectID: "b", Locker: "bob", AcquireTime: time.Now(), ExpirationTime: &exp, Kind: locks.KindTemporary}
	got := lockToJSON(lock)
	if got.Expiration == nil || *got.Expiration != exp.Unix() {
		t.Fatalf("Expiration = %v, want %d", got.Expiration, exp.Unix())
	}
}

func TestErrorPayloadDispatchesOnErrorType(t *testing.T) {
	already := &locks.AlreadyHeldError{ObjectID: "a", Locker: "alice", AcquireTime: time.Now()}
	if payload := errorPayload("a", already); payload.(alreadyHeldJSON).Exception != "LockAlreadyAcquired" {
		t.Fatalf("errorPayload(AlreadyHeldError) = %+v", payload)
	}

	notFound := &locks.NotFoundError{ObjectID: "b"}
	if payload := errorPayload("b", notFound); payload.(notFoundJSON).Exception != "LockNotFound" {
		t.Fatalf("errorPayload(NotFoundError) = %+v", payload)
	}

	other := errors.New("boom")
	payload := errorPayload("c", other).(notFoundJSON)
	if payload.Exception != "Internal" || payload.Message != "boom" {
		t.Fatalf("errorPayload(generic error) = %+v", payload)
	}
}
