package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarsStirner/ezekiel/internal/auth"
	"github.com/MarsStirner/ezekiel/internal/config"
	"github.com/MarsStirner/ezekiel/internal/locks"
)

func testServer(t *testing.T) (*Server, *auth.HMACAuthenticator) {
	t.Helper()
	authenticator := auth.NewHMACAuthenticator("test-secret", "ezekiel_session", 0)
	manager := locks.New(locks.WithShortTimeout(50*time.Millisecond), locks.WithLongTimeout(200*time.Millisecond))
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, manager, authenticator, nil, logger), authenticator
}

func authedRequest(t *testing.T, authenticator *auth.HMACAuthenticator, method, target string) *http.Request {
	t.Helper()
	token, err := authenticator.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRPCAcquireReturnsLockJSON(t *testing.T) {
	s, authenticator := testServer(t)
	req := authedRequest(t, authenticator, http.MethodPost, "/ezekiel/rpc/acquire/res-1")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got lockJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v, body=%s", err, rec.Body.String())
	}
	if !got.Success || got.ObjectID != "res-1" || got.Locker != "alice" {
		t.Fatalf("unexpected lock response: %+v", got)
	}
	if len(got.Token) != 32 {
		t.Fatalf("token length = %d, want 32", len(got.Token))
	}
}

func TestRPCUnauthenticatedIsForbidden(t *testing.T) {
	s, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/ezekiel/rpc/acquire/res-1", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRPCUnknownCommandIsBadRequest(t *testing.T) {
	s, authenticator := testServer(t)
	req := authedRequest(t, authenticator, http.MethodPost, "/ezekiel/rpc/bogus/res-1")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRPCReleaseThenProlongReportsNotFound(t *testing.T) {
	s, authenticator := testServer(t)

	acquireReq := authedRequest(t, authenticator, http.MethodPost, "/ezekiel/rpc/acquire/res-2")
	acquireRec := httptest.NewRecorder()
	s.router().ServeHTTP(acquireRec, acquireReq)
	var lock lockJSON
	if err := json.Unmarshal(acquireRec.Body.Bytes(), &lock); err != nil {
		t.Fatalf("decode acquire: %v", err)
	}

	releaseReq := authedRequest(t, authenticator, http.MethodPost, "/ezekiel/rpc/release/res-2?token="+lock.Token)
	releaseRec := httptest.NewRecorder()
	s.router().ServeHTTP(releaseRec, releaseReq)
	if releaseRec.Code != http.StatusOK {
		t.Fatalf("release status = %d, want 200", releaseRec.Code)
	}

	prolongReq := authedRequest(t, authenticator, http.MethodPost, "/ezekiel/rpc/prolong/res-2?token="+lock.Token)
	prolongRec := httptest.NewRecorder()
	s.router().ServeHTTP(prolongRec, prolongReq)
	var errPayload notFoundJSON
	if err := json.Unmarshal(prolongRec.Body.Bytes(), &errPayload); err != nil {
		t.Fatalf("decode prolong error: %v", err)
	}
	if errPayload.Success || errPayload.Exception != "LockNotFound" {
		t.Fatalf("unexpected prolong payload: %+v", errPayload)
	}
}

func TestHealthzReportsHeldLocks(t *testing.T) {
	s, authenticator := testServer(t)
	req := authedRequest(t, authenticator, http.MethodPost, "/ezekiel/rpc/acquire/res-3")
	s.router().ServeHTTP(httptest.NewRecorder(), req)

	healthReq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.startTime = time.Now()
	s.router().ServeHTTP(rec, healthReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["held_locks"].(float64) != 1 {
		t.Fatalf("held_locks = %v, want 1", body["held_locks"])
	}
}
