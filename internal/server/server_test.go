package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"desktopcast/internal/capture"
	"desktopcast/internal/config"
)

func newTestServer(t *testing.T, maxClients int) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.MaxClients = maxClients
	cfg.AudioEnabled = false
	src := capture.NewStubSource(4, 4)
	s := New(cfg, src, nil)
	ts := httptest.NewServer(s.wsRouter)
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// TestHelloSetsSessionVersion verifies that a hello message records the
// client's protocol version on its session.
func TestHelloSetsSessionVersion(t *testing.T) {
	s, ts := newTestServer(t, 4)
	conn := dial(t, ts)
	defer conn.Close()

	waitFor(t, func() bool { return s.registry.Len() == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello","client":"viewer","version":3}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	waitFor(t, func() bool {
		for _, sess := range s.registry.Snapshot() {
			if sess.Version == 3 {
				return true
			}
		}
		return false
	})
}

// TestRequestKeyframeSetsSessionFlag verifies that a request_keyframe
// control message re-arms the session's NeedsKeyframe flag. EncodeStage's
// process-wide flag is private to package encode and is not checked here.
func TestRequestKeyframeSetsSessionFlag(t *testing.T) {
	s, ts := newTestServer(t, 4)
	conn := dial(t, ts)
	defer conn.Close()

	waitFor(t, func() bool { return s.registry.Len() == 1 })
	var sessionID string
	for _, sess := range s.registry.Snapshot() {
		sessionID = sess.ID
		sess.SetNeedsKeyframe(false)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"request_keyframe"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	waitFor(t, func() bool {
		sess, ok := s.registry.Get(sessionID)
		return ok && sess.NeedsKeyframe()
	})
}

// TestCapacityRefusal verifies that once the registry is full, further
// connections are upgraded then immediately closed.
func TestCapacityRefusal(t *testing.T) {
	s, ts := newTestServer(t, 1)

	first := dial(t, ts)
	defer first.Close()
	waitFor(t, func() bool { return s.registry.Len() == 1 })

	second := dial(t, ts)
	defer second.Close()

	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatal("expected the refused connection to be closed by the server")
	}
	if s.registry.Len() != 1 {
		t.Fatalf("registry.Len() = %d, want 1 (refused session must not be admitted)", s.registry.Len())
	}
}

// TestMalformedControlDroppedSilently verifies that invalid JSON on the
// control channel must not disconnect the session.
func TestMalformedControlDroppedSilently(t *testing.T) {
	s, ts := newTestServer(t, 4)
	conn := dial(t, ts)
	defer conn.Close()

	waitFor(t, func() bool { return s.registry.Len() == 1 })
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if s.registry.Len() != 1 {
		t.Fatal("malformed control message must not drop the session")
	}
}
