package capture

import (
	"context"
	"testing"
)

// blockingSource returns a frame immediately, or, when fail is set, never
// returns before its context is cancelled, letting tests exercise Stage's
// grabTimeout -> duplicate-frame fallback path.
type blockingSource struct {
	width, height int
	fail          bool
}

func (b *blockingSource) Width() int  { return b.width }
func (b *blockingSource) Height() int { return b.height }
func (b *blockingSource) Close() error { return nil }

func (b *blockingSource) Grab(ctx context.Context) (*Frame, error) {
	if b.fail {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &Frame{Pixels: []byte{1, 2, 3, 4}, Width: b.width, Height: b.height}, nil
}

func TestTickPushesIncrementingSequence(t *testing.T) {
	src := &blockingSource{width: 2, height: 2}
	s := NewStage(src, nil, 4, nil, nil)

	s.tick(context.Background())
	s.tick(context.Background())

	f1, ok := s.Output().Pop()
	if !ok {
		t.Fatal("expected first frame")
	}
	f2, ok := s.Output().Pop()
	if !ok {
		t.Fatal("expected second frame")
	}
	if f1.Sequence != 1 || f2.Sequence != 2 {
		t.Errorf("sequences = %d, %d; want 1, 2", f1.Sequence, f2.Sequence)
	}
	if f1.Duplicate || f2.Duplicate {
		t.Error("successful grabs must not be marked Duplicate")
	}
}

// TestTickFallsBackToCacheOnTimeout verifies that when a grab times out
// but a previous frame is cached, Stage re-emits it marked Duplicate
// rather than stalling.
func TestTickFallsBackToCacheOnTimeout(t *testing.T) {
	src := &blockingSource{width: 2, height: 2}
	s := NewStage(src, nil, 4, nil, nil)
	s.tick(context.Background())
	if _, ok := s.Output().Pop(); !ok {
		t.Fatal("expected seed frame")
	}

	src.fail = true
	s.tick(context.Background())

	f, ok := s.Output().Pop()
	if !ok {
		t.Fatal("expected duplicate fallback frame")
	}
	if !f.Duplicate {
		t.Error("expected Duplicate=true on timeout fallback")
	}
}

// TestTickSkippedWhenInactive ensures the tick is a no-op while no
// sessions are attached.
func TestTickSkippedWhenInactive(t *testing.T) {
	src := &blockingSource{width: 2, height: 2}
	s := NewStage(src, nil, 4, func() bool { return false }, nil)
	s.tick(context.Background())
	if s.Output().Len() != 0 {
		t.Error("expected no frame pushed while inactive")
	}
}

func TestTickNoCacheNoNeedsFnIsNoop(t *testing.T) {
	src := &blockingSource{width: 2, height: 2, fail: true}
	s := NewStage(src, nil, 4, nil, nil)
	s.tick(context.Background())
	if s.Output().Len() != 0 {
		t.Error("expected no frame pushed when there is no cache and nothing needs a keyframe")
	}
}
