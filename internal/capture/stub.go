package capture

import (
	"context"
	"sync/atomic"
)

// StubSource is a deterministic, cgo-free Source used by tests and by any
// build without an X11 display. Grounded on the teacher's
// sdriver/dummy.DummyDriver pattern of a stand-in driver that synthesizes
// frames instead of reading real hardware.
type StubSource struct {
	width, height int
	counter       atomic.Uint64
}

// NewStubSource returns a synthetic source producing width x height BGRA
// frames that cycle through a flat color per frame, enough for pipeline
// and wire-format tests without a display.
func NewStubSource(width, height int) *StubSource {
	return &StubSource{width: width, height: height}
}

func (s *StubSource) Width() int  { return s.width }
func (s *StubSource) Height() int { return s.height }

func (s *StubSource) Grab(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.counter.Add(1)
	shade := byte(n % 256)
	pixels := make([]byte, s.width*s.height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = shade     // B
		pixels[i+1] = shade   // G
		pixels[i+2] = shade   // R
		pixels[i+3] = 0xFF    // A
	}
	return &Frame{Pixels: pixels, Width: s.width, Height: s.height}, nil
}

func (s *StubSource) Close() error { return nil }
