package capture

import (
	"context"
	"log"
	"time"

	"desktopcast/internal/pipeline"
)

// grabTimeout bounds how long a single tick waits for a fresh frame
// before falling back to the cached last frame.
const grabTimeout = 10 * time.Millisecond

// ActiveSessions reports whether at least one client is attached; the
// capture tick is a no-op while no one is watching.
type ActiveSessions func() bool

// Stage drives a fixed-interval tick equal to 1/TargetFPS and pushes
// CapturedFrame values onto a bounded, drop-oldest queue for EncodeStage
// to consume.
type Stage struct {
	source  Source
	cursor  CursorSource // optional; nil sources report cursor at (0,0)
	out     *pipeline.Queue[*Frame]
	active  ActiveSessions
	needsFn func() bool // true if any attached client still needs a keyframe

	seq uint64

	// lastFrame is CaptureStage's own private cache, not a process global.
	lastFrame *Frame
}

// NewStage constructs a capture pipeline stage. queueCapacity sizes the
// drop-oldest output queue.
func NewStage(source Source, cursor CursorSource, queueCapacity int, active ActiveSessions, needsKeyframe func() bool) *Stage {
	return &Stage{
		source:  source,
		cursor:  cursor,
		out:     pipeline.NewQueue[*Frame](queueCapacity),
		active:  active,
		needsFn: needsKeyframe,
	}
}

// Output exposes the queue EncodeStage reads from.
func (s *Stage) Output() *pipeline.Queue[*Frame] { return s.out }

// Run ticks at interval fps until ctx is cancelled.
func (s *Stage) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = 60
	}
	interval := time.Second / time.Duration(fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Stage) tick(ctx context.Context) {
	if s.active != nil && !s.active() {
		return
	}

	u, v := s.normalizedCursor()

	grabCtx, cancel := context.WithTimeout(ctx, grabTimeout)
	frame, err := s.source.Grab(grabCtx)
	cancel()

	switch {
	case err == nil:
		frame.CursorU, frame.CursorV = u, v
		frame.Duplicate = false
		s.lastFrame = frame
	case s.lastFrame != nil:
		// Timeout or no change: re-emit the cached frame with updated
		// cursor, marked as a duplicate.
		dup := *s.lastFrame
		dup.CursorU, dup.CursorV = u, v
		dup.Duplicate = true
		frame = &dup
	case s.needsFn != nil && s.needsFn():
		// No cached frame yet but a client needs one: synthesize a
		// usable frame via a direct, un-timed-out grab so streaming can
		// start rather than stalling forever on a cold source.
		frame, err = s.source.Grab(ctx)
		if err != nil {
			log.Printf("[capture] fallback grab failed: %v", err)
			return
		}
		frame.CursorU, frame.CursorV = u, v
		s.lastFrame = frame
	default:
		return
	}

	s.seq++
	frame.Sequence = s.seq
	s.out.Push(frame)
}

func (s *Stage) normalizedCursor() (float32, float32) {
	if s.cursor == nil {
		return 0, 0
	}
	x, y, ok := s.cursor.CursorPosition()
	if !ok {
		return 0, 0
	}
	w, h := s.source.Width(), s.source.Height()
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	return float32(x) / float32(w), float32(y) / float32(h)
}

// Close releases the underlying capture source.
func (s *Stage) Close() error {
	s.out.Close()
	return s.source.Close()
}
