package encode

import (
	"context"
	"testing"

	"desktopcast/internal/capture"
	"desktopcast/internal/pipeline"
)

func sampleFrame(seq uint64) *capture.Frame {
	const w, h = 4, 4
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i+3] = 0xFF
	}
	return &capture.Frame{Pixels: pixels, Width: w, Height: h, Sequence: seq}
}

// TestJPEGOnlyAlwaysProducesKeyframes exercises the forced-fallback path
// (no cgo/H.264 required) and verifies the JPEG fallback always produces
// a keyframe.
func TestJPEGOnlyAlwaysProducesKeyframes(t *testing.T) {
	in := pipeline.NewQueue[*capture.Frame](4)
	s := NewStage(in, 4, 60, 8000, false, true /* jpegOnly */)

	s.encode(sampleFrame(1))
	out, ok := s.Output().Pop()
	if !ok {
		t.Fatal("expected an encoded frame")
	}
	if !out.IsKeyFrame {
		t.Error("JPEG fallback output must always be a keyframe")
	}
	if len(out.Data) == 0 {
		t.Error("expected non-empty JPEG payload")
	}
}

// TestActiveCodecReusesFallbackOnce ensures the stage doesn't reopen a
// codec per frame once it has settled on the JPEG fallback.
func TestActiveCodecReusesFallbackOnce(t *testing.T) {
	in := pipeline.NewQueue[*capture.Frame](4)
	s := NewStage(in, 4, 60, 8000, false, true)

	c1, err := s.activeCodec(4, 4)
	if err != nil {
		t.Fatalf("activeCodec: %v", err)
	}
	c2, err := s.activeCodec(4, 4)
	if err != nil {
		t.Fatalf("activeCodec: %v", err)
	}
	if c1 != c2 {
		t.Error("expected the same fallback codec instance across calls")
	}
}

// TestRequestKeyframeIsConsumedOnce verifies the flag is read-and-cleared
// atomically by the next encode call.
func TestRequestKeyframeIsConsumedOnce(t *testing.T) {
	in := pipeline.NewQueue[*capture.Frame](4)
	s := NewStage(in, 4, 60, 8000, false, true)

	s.RequestKeyframe()
	if !s.keyframeRequested.Load() {
		t.Fatal("expected flag to be set")
	}
	s.encode(sampleFrame(1))
	if s.keyframeRequested.Load() {
		t.Error("expected flag to be cleared after the next encode")
	}
}

func TestRunDrainsUntilQueueClosed(t *testing.T) {
	in := pipeline.NewQueue[*capture.Frame](4)
	s := NewStage(in, 4, 60, 8000, false, true)

	in.Push(sampleFrame(1))
	in.Push(sampleFrame(2))
	in.Close()

	s.Run(context.Background())

	count := 0
	for {
		if _, ok := s.Output().Pop(); ok {
			count++
			if count >= 2 {
				break
			}
			continue
		}
		break
	}
	if count != 2 {
		t.Fatalf("got %d encoded frames, want 2", count)
	}
}
