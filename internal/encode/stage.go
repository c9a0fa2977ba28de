package encode

import (
	"context"
	"log"
	"sync/atomic"

	"desktopcast/internal/capture"
	"desktopcast/internal/pipeline"
)

// Stage consumes capture.Frame values and produces encode.Frame values.
// It owns the single process-wide "request keyframe" flag as a private
// atomic field rather than a package-level global.
type Stage struct {
	in  *pipeline.Queue[*capture.Frame]
	out *pipeline.Queue[*Frame]

	fps, bitrateKbps, gop int
	preferHardware        bool
	jpegOnly              bool

	codec         Codec
	fallback      *jpegCodec
	usingFallback bool

	keyframeRequested atomic.Bool
}

// NewStage builds an EncodeStage reading from in and publishing to a
// freshly-created output queue of the given capacity.
func NewStage(in *pipeline.Queue[*capture.Frame], outCapacity, fps, bitrateKbps int, preferHardware, jpegOnly bool) *Stage {
	return &Stage{
		in:             in,
		out:            pipeline.NewQueue[*Frame](outCapacity),
		fps:            fps,
		bitrateKbps:    bitrateKbps,
		gop:            fps * 10,
		preferHardware: preferHardware,
		jpegOnly:       jpegOnly,
		fallback:       NewJPEGCodec(80),
	}
}

// Output exposes the queue FanOut reads from.
func (s *Stage) Output() *pipeline.Queue[*Frame] { return s.out }

// RequestKeyframe is called by ControlPlane when any client asks for a
// fresh I-frame. It is read-and-cleared atomically by the next encode.
func (s *Stage) RequestKeyframe() { s.keyframeRequested.Store(true) }

// Run drives the consume-encode-publish loop until ctx is cancelled or
// the input queue closes.
func (s *Stage) Run(ctx context.Context) {
	for {
		frame, ok := s.in.Pop()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.encode(frame)
	}
}

func (s *Stage) encode(frame *capture.Frame) {
	codec, err := s.activeCodec(frame.Width, frame.Height)
	if err != nil {
		log.Printf("[encode] no codec available: %v", err)
		return
	}

	forceKey := s.keyframeRequested.Swap(false)
	out, err := codec.Encode(frame, forceKey)
	if err != nil {
		log.Printf("[encode] %s rejected a frame, dropping: %v", codec.Name(), err)
		return
	}
	if out == nil {
		return // codec buffered the frame internally; nothing to publish yet
	}
	s.out.Push(out)
}

// activeCodec lazily opens the encoder on first use, sized to the first
// frame's dimensions, and falls back to JPEG for the rest of the process
// if every H.264 option failed to open.
func (s *Stage) activeCodec(width, height int) (Codec, error) {
	if s.usingFallback {
		return s.fallback, nil
	}
	if s.codec != nil {
		return s.codec, nil
	}
	if s.jpegOnly {
		s.usingFallback = true
		return s.fallback, nil
	}

	codec, err := s.openHardwareThenSoftware(width, height)
	if err != nil {
		log.Printf("[encode] H.264 unavailable, falling back to JPEG for this process: %v", err)
		s.usingFallback = true
		return s.fallback, nil
	}
	log.Printf("[encode] using %s (%dx%d @ %d kbps)", codec.Name(), width, height, s.bitrateKbps)
	s.codec = codec
	return s.codec, nil
}

// Close releases the active codec, if any.
func (s *Stage) Close() error {
	s.out.Close()
	if s.codec != nil {
		return s.codec.Close()
	}
	return nil
}
