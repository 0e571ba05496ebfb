package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsDial(t *testing.T, s *Server, authenticator interface {
	GenerateToken(string) (string, error)
}) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(s.router())
	token, err := authenticator.GenerateToken("bob")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ezekiel/ws"
	header := make(map[string][]string)
	header["Authorization"] = []string{"Bearer " + token}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn, ts
}

func readFrame(t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame outboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return frame
}

func TestWSAcquireReleaseRoundTrip(t *testing.T) {
	s, authenticator := testServer(t)
	conn, ts := wsDial(t, s, authenticator)
	defer ts.Close()
	defer conn.Close()

	if err := conn.WriteJSON(inboundFrame{Command: "acquire", ObjectID: "doc-1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Event != "acquired" {
		t.Fatalf("event = %q, want acquired", frame.Event)
	}

	data, _ := json.Marshal(frame.Data)
	var lock lockJSON
	if err := json.Unmarshal(data, &lock); err != nil {
		t.Fatalf("decode lock: %v", err)
	}

	if err := conn.WriteJSON(inboundFrame{Command: "release", ObjectID: "doc-1", Token: lock.Token}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	released := readFrame(t, conn)
	if released.Event != "released" {
		t.Fatalf("event = %q, want released", released.Event)
	}
}

func TestWSSecondSessionIsRejectedThenRetriesOnRelease(t *testing.T) {
	s, authenticator := testServer(t)
	connA, tsA := wsDial(t, s, authenticator)
	defer tsA.Close()
	defer connA.Close()

	if err := connA.WriteJSON(inboundFrame{Command: "acquire", ObjectID: "doc-2"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	frameA := readFrame(t, connA)
	data, _ := json.Marshal(frameA.Data)
	var lockA lockJSON
	_ = json.Unmarshal(data, &lockA)

	connB, err := dialSameServer(t, tsA, authenticator)
	if err != nil {
		t.Fatalf("dial second session: %v", err)
	}
	defer connB.Close()

	if err := connB.WriteJSON(inboundFrame{Command: "acquire", ObjectID: "doc-2"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	rejected := readFrame(t, connB)
	if rejected.Event != "rejected" {
		t.Fatalf("event = %q, want rejected", rejected.Event)
	}

	if err := connA.WriteJSON(inboundFrame{Command: "release", ObjectID: "doc-2", Token: lockA.Token}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = readFrame(t, connA) // "released" ack to A

	acquiredB := readFrame(t, connB)
	if acquiredB.Event != "acquired" {
		t.Fatalf("event = %q, want acquired after retry", acquiredB.Event)
	}
}

func TestWSReleaseOfAWaitedObjectDoesNotTriggerSpuriousRetry(t *testing.T) {
	s, authenticator := testServer(t)
	connA, tsA := wsDial(t, s, authenticator)
	defer tsA.Close()
	defer connA.Close()

	if err := connA.WriteJSON(inboundFrame{Command: "acquire", ObjectID: "doc-4"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	frameA := readFrame(t, connA)
	data, _ := json.Marshal(frameA.Data)
	var lockA lockJSON
	_ = json.Unmarshal(data, &lockA)

	connB, err := dialSameServer(t, tsA, authenticator)
	if err != nil {
		t.Fatalf("dial second session: %v", err)
	}
	defer connB.Close()

	if err := connB.WriteJSON(inboundFrame{Command: "acquire", ObjectID: "doc-4"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	rejected := readFrame(t, connB)
	if rejected.Event != "rejected" {
		t.Fatalf("event = %q, want rejected", rejected.Event)
	}

	// B gives up waiting on doc-4 before A ever releases it.
	if err := connB.WriteJSON(inboundFrame{Command: "release", ObjectID: "doc-4"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = readFrame(t, connB) // "exception": no lock held, nothing to release

	if err := connA.WriteJSON(inboundFrame{Command: "release", ObjectID: "doc-4", Token: lockA.Token}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = readFrame(t, connA) // "released" ack to A

	connB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var frame outboundFrame
	if err := connB.ReadJSON(&frame); err == nil {
		t.Fatalf("B received unexpected frame after giving up waiting: %+v", frame)
	}
}

func dialSameServer(t *testing.T, ts *httptest.Server, authenticator interface {
	GenerateToken(string) (string, error)
}) (*websocket.Conn, error) {
	t.Helper()
	token, err := authenticator.GenerateToken("carol")
	if err != nil {
		return nil, err
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ezekiel/ws"
	header := make(map[string][]string)
	header["Authorization"] = []string{"Bearer " + token}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	return conn, err
}

func TestWSDisconnectReleasesOwnedLocks(t *testing.T) {
	s, authenticator := testServer(t)
	conn, ts := wsDial(t, s, authenticator)
	defer ts.Close()

	if err := conn.WriteJSON(inboundFrame{Command: "acquire", ObjectID: "doc-3"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = readFrame(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.manager.Snapshot("doc-3"); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("lock doc-3 still held after disconnect")
}
