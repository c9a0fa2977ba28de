// Package fanout implements FanOut: drains encodeQ/audioQ and dispatches
// wire frames to every attached session concurrently with a per-send
// timeout.
package fanout

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"desktopcast/internal/encode"
	"desktopcast/internal/pipeline"
	"desktopcast/internal/registry"
	"desktopcast/internal/wire"
)

// sendTimeout bounds how long a single session's send may take before
// FanOut gives up on it.
const sendTimeout = 5 * time.Second

// Worker reads encodeQ and audioQ and writes wire frames to every open
// session.
type Worker struct {
	registry *registry.Registry
	video    *pipeline.Queue[*encode.Frame]
	audio    *pipeline.Queue[[]byte]

	onSessionFailed func(id string)
}

// New builds a FanOut worker over the given registry and queues.
// onSessionFailed is invoked when a send fails or times out; the caller
// typically removes the session without aborting fan-out to the rest.
func New(reg *registry.Registry, video *pipeline.Queue[*encode.Frame], audio *pipeline.Queue[[]byte], onSessionFailed func(id string)) *Worker {
	return &Worker{registry: reg, video: video, audio: audio, onSessionFailed: onSessionFailed}
}

// Run drains both queues concurrently until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); w.drainVideo(ctx) }()
	go func() { defer wg.Done(); w.drainAudio(ctx) }()
	wg.Wait()
}

func (w *Worker) drainVideo(ctx context.Context) {
	for {
		frame, ok := w.video.Pop()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.dispatchVideo(frame)
	}
}

func (w *Worker) drainAudio(ctx context.Context) {
	for {
		packet, ok := w.audio.Pop()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.dispatchAudio(packet)
	}
}

func (w *Worker) dispatchVideo(frame *encode.Frame) {
	frameType := wire.FrameTypeP
	if frame.IsKeyFrame {
		frameType = wire.FrameTypeI
	}
	msg := wire.EncodeVideo(frameType, frame.CursorU, frame.CursorV, frame.Data)

	sessions := w.registry.Snapshot()
	var wg sync.WaitGroup
	for _, s := range sessions {
		if !frame.IsKeyFrame && s.NeedsKeyframe() {
			// Skip P-frames to a session still waiting on a keyframe so
			// the first decode it sees is self-sufficient.
			continue
		}
		if frame.IsKeyFrame {
			// Clear before the send so a concurrent keyframe request
			// arriving mid-send still arms another one.
			s.SetNeedsKeyframe(false)
		}
		wg.Add(1)
		go func(s *registry.Session) {
			defer wg.Done()
			if err := w.send(s, msg); err != nil {
				w.fail(s.ID, err)
				return
			}
			s.LastFrameSent = int64(frame.Sequence)
		}(s)
	}
	wg.Wait()
}

func (w *Worker) dispatchAudio(packet []byte) {
	msg := wire.EncodeAudio(packet)
	sessions := w.registry.Snapshot()
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *registry.Session) {
			defer wg.Done()
			if err := w.send(s, msg); err != nil {
				w.fail(s.ID, err)
			}
		}(s)
	}
	wg.Wait()
}

// send writes msg to s's transport, enforcing sendTimeout via a
// deadline-aware write where the transport supports it, and otherwise by
// racing the write against a timer.
func (w *Worker) send(s *registry.Session, msg []byte) error {
	if deadliner, ok := s.Conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = deadliner.SetWriteDeadline(time.Now().Add(sendTimeout))
		return s.Conn.WriteMessage(websocket.BinaryMessage, msg)
	}

	done := make(chan error, 1)
	go func() { done <- s.Conn.WriteMessage(websocket.BinaryMessage, msg) }()
	select {
	case err := <-done:
		return err
	case <-time.After(sendTimeout):
		return errSendTimeout
	}
}

func (w *Worker) fail(id string, err error) {
	log.Printf("[fanout] session %s failed: %v", id, err)
	if w.onSessionFailed != nil {
		w.onSessionFailed(id)
	}
}

type sendTimeoutError struct{}

func (sendTimeoutError) Error() string { return "fanout: send timed out" }

var errSendTimeout = sendTimeoutError{}
