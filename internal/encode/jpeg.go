package encode

import (
	"bytes"
	"image"
	"image/jpeg"

	"desktopcast/internal/capture"
)

// jpegCodec is the last-resort fallback when no H.264 encoder could be
// opened: it always succeeds and every output is a keyframe, since a
// JPEG image is self-sufficient by construction.
type jpegCodec struct {
	quality int
}

// NewJPEGCodec returns a fallback codec at the given JPEG quality
// (1-100).
func NewJPEGCodec(quality int) *jpegCodec {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &jpegCodec{quality: quality}
}

func (j *jpegCodec) Name() string { return "jpeg-fallback" }

func (j *jpegCodec) Encode(frame *capture.Frame, forceKey bool) (*Frame, error) {
	img := bgraToImage(frame)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: j.quality}); err != nil {
		return nil, err
	}
	return &Frame{
		Data:       buf.Bytes(),
		CursorU:    frame.CursorU,
		CursorV:    frame.CursorV,
		IsKeyFrame: true, // every JPEG fallback output is self-sufficient
		Sequence:   frame.Sequence,
	}, nil
}

func (j *jpegCodec) Close() error { return nil }

// bgraToImage converts a tightly-packed BGRA buffer into an image.NRGBA
// the stdlib jpeg encoder can consume.
func bgraToImage(frame *capture.Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	src := frame.Pixels
	for i := 0; i < len(src); i += 4 {
		b, g, r, a := src[i], src[i+1], src[i+2], src[i+3]
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}
