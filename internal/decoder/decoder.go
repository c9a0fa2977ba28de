// Package decoder implements the viewer-side Decoder: an H.264 decode
// session state machine producing the packed-YUV layout FanOut's wire
// frames are meant to be displayed with.
package decoder

import "log"

// State is the viewer Decoder's session state machine.
type State int

const (
	Waiting State = iota
	Streaming
)

// Codec is the underlying H.264 decode backend; Decoder owns exactly one
// per session.
type Codec interface {
	Decode(nalData []byte) (*DecodedImage, error)
	Reset()
	Close() error
}

// Decoder drives the Waiting/Streaming state machine and produces packed
// YUV output for each successfully decoded frame. Width/height are not
// supplied at construction; they are derived lazily from the first
// decoded frame and may change later without reconstructing the Decoder.
type Decoder struct {
	codec  Codec
	state  State
	width  int
	height int
}

// New wraps codec in a fresh Decoder starting in the Waiting state.
func New(codec Codec) *Decoder {
	return &Decoder{codec: codec, state: Waiting}
}

// DecodeFrame feeds one Annex-B access unit through the state machine.
// It returns nil, nil when the frame was dropped (Waiting + non-IDR, or
// a buffered packet that produced no output yet).
func (d *Decoder) DecodeFrame(nalData []byte) ([]byte, error) {
	if len(nalData) == 0 {
		return nil, nil
	}

	isKeyframe := classifyH264(nalData)
	if d.state == Waiting && !isKeyframe {
		return nil, nil // drop P-frames while waiting for a keyframe
	}

	img, err := d.codec.Decode(nalData)
	if err != nil {
		if isKeyframe {
			// A keyframe itself failed to decode, so reset the codec and
			// fall back to waiting for a fresh IDR.
			d.state = Waiting
			d.codec.Reset()
		}
		return nil, err
	}
	if img == nil {
		return nil, nil // decoder buffered the packet; nothing to emit yet
	}

	if img.Width != d.width || img.Height != d.height {
		d.width, d.height = img.Width, img.Height
		log.Printf("[decoder] frame size %dx%d format=%d", img.Width, img.Height, img.Format)
	}

	d.state = Streaming
	return Pack(*img), nil
}

// OnTransportReset forces the state machine back to Waiting and resets
// the underlying codec, for use when the transport reconnects.
func (d *Decoder) OnTransportReset() {
	d.state = Waiting
	d.codec.Reset()
}

// State reports the current state machine position.
func (d *Decoder) State() State { return d.state }

// Close releases the underlying codec.
func (d *Decoder) Close() error { return d.codec.Close() }
