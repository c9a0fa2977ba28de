package fanout

import (
	"sync"
	"testing"
	"time"

	"desktopcast/internal/encode"
	"desktopcast/internal/pipeline"
	"desktopcast/internal/registry"
)

type recordingConn struct {
	mu   sync.Mutex
	sent [][]byte
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}
func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// TestWaitingSessionSkipsPFrames verifies that a session that still
// needs a keyframe does not receive P-frames, and that the first frame
// it does receive is a keyframe.
func TestWaitingSessionSkipsPFrames(t *testing.T) {
	reg := registry.New(4, nil)
	conn := &recordingConn{}
	session := registry.NewSession(conn)
	reg.Add(session)

	video := pipeline.NewQueue[*encode.Frame](10)
	audio := pipeline.NewQueue[[]byte](10)
	w := New(reg, video, audio, func(string) {})

	w.dispatchVideo(&encode.Frame{Data: []byte("p1"), IsKeyFrame: false, Sequence: 1})
	if conn.count() != 0 {
		t.Fatalf("expected P-frame to be skipped while NeedsKeyframe, got %d sends", conn.count())
	}
	if !session.NeedsKeyframe() {
		t.Fatal("NeedsKeyframe should still be true after a skipped P-frame")
	}

	w.dispatchVideo(&encode.Frame{Data: []byte("i1"), IsKeyFrame: true, Sequence: 2})
	if conn.count() != 1 {
		t.Fatalf("expected the keyframe to be sent, got %d sends", conn.count())
	}
	if session.NeedsKeyframe() {
		t.Fatal("NeedsKeyframe should be cleared after a keyframe is dispatched")
	}

	w.dispatchVideo(&encode.Frame{Data: []byte("p2"), IsKeyFrame: false, Sequence: 3})
	if conn.count() != 2 {
		t.Fatalf("expected the P-frame after keyframe to be sent, got %d sends", conn.count())
	}
}

// TestAudioAlwaysDispatched ensures audio packets are never gated by the
// video keyframe flag.
func TestAudioAlwaysDispatched(t *testing.T) {
	reg := registry.New(4, nil)
	conn := &recordingConn{}
	reg.Add(registry.NewSession(conn))

	video := pipeline.NewQueue[*encode.Frame](10)
	audio := pipeline.NewQueue[[]byte](10)
	w := New(reg, video, audio, func(string) {})

	w.dispatchAudio([]byte{1, 2, 3})
	if conn.count() != 1 {
		t.Fatalf("expected audio packet to be dispatched, got %d sends", conn.count())
	}
}

func TestFailedSendTriggersRemoval(t *testing.T) {
	reg := registry.New(4, nil)
	session := registry.NewSession(&failingConn{})
	reg.Add(session)

	var removedID string
	video := pipeline.NewQueue[*encode.Frame](10)
	audio := pipeline.NewQueue[[]byte](10)
	w := New(reg, video, audio, func(id string) { removedID = id })

	w.dispatchVideo(&encode.Frame{Data: []byte("i1"), IsKeyFrame: true, Sequence: 1})

	deadline := time.Now().Add(time.Second)
	for removedID == "" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if removedID != session.ID {
		t.Fatalf("onSessionFailed not invoked with failing session id")
	}
}

type failingConn struct{}

func (failingConn) WriteMessage(int, []byte) error { return errWriteFailed }
func (failingConn) Close() error                   { return nil }

type writeFailedError struct{}

func (writeFailedError) Error() string { return "write failed" }

var errWriteFailed = writeFailedError{}
