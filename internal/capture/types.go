// Package capture implements CaptureStage: a fixed-interval tick that
// turns raw display grabs into CapturedFrame values for EncodeStage.
package capture

import "context"

// Frame is a raw BGRA display snapshot, owned exclusively by whichever
// stage currently holds it as it moves through the pipeline.
type Frame struct {
	Pixels   []byte // tightly packed BGRA, len == Width*Height*4
	Width    int
	Height   int
	CursorU  float32
	CursorV  float32
	Sequence uint64
	Duplicate bool
}

// Source abstracts the platform capture backend. Grab returns ctx'd
// errors (e.g. deadline exceeded for the ~10ms capture timeout) rather
// than blocking indefinitely, so CaptureStage can fall back to its
// last-frame cache.
type Source interface {
	Grab(ctx context.Context) (*Frame, error)
	Width() int
	Height() int
	Close() error
}

// CursorSource reports the host's absolute cursor position; implemented
// by the same backend as Source on platforms where the two are coupled
// (X11 root-window pointer query).
type CursorSource interface {
	CursorPosition() (x, y int, ok bool)
}
