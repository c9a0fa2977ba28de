// Package encode implements EncodeStage: turns captured BGRA frames into
// compressed EncodedFrame values, preferring hardware H.264, then
// software H.264, then a per-frame JPEG fallback.
package encode

import (
	"desktopcast/internal/capture"
)

// Frame is a compressed frame ready for FanOut.
type Frame struct {
	Data       []byte
	CursorU    float32
	CursorV    float32
	IsKeyFrame bool
	Sequence   uint64
}

// Codec compresses BGRA frames into a single video codec's output.
// Implementations hold their own encoder context; EncodeStage owns
// at-most-one active Codec for the process lifetime.
type Codec interface {
	// Encode compresses one frame. forceKey requests (but does not
	// guarantee) that the output be a keyframe; IsKeyFrame on the
	// result always reflects what the codec actually produced.
	Encode(frame *capture.Frame, forceKey bool) (*Frame, error)
	Name() string
	Close() error
}
