//go:build linux

package decoder

/*
#cgo pkg-config: libavcodec libavutil
#include <libavcodec/avcodec.h>
#include <stdlib.h>

typedef struct {
	AVCodecContext *ctx;
	AVFrame *frame;
	AVPacket *pkt;
} h264dec;

static h264dec *h264dec_open() {
	const AVCodec *codec = avcodec_find_decoder_by_name("h264_cuvid");
	if (!codec) codec = avcodec_find_decoder(AV_CODEC_ID_H264);
	if (!codec) return NULL;

	h264dec *d = (h264dec *)calloc(1, sizeof(h264dec));
	if (!d) return NULL;

	d->ctx = avcodec_alloc_context3(codec);
	if (!d->ctx) { free(d); return NULL; }
	if (avcodec_open2(d->ctx, codec, NULL) < 0) {
		avcodec_free_context(&d->ctx);
		free(d);
		return NULL;
	}
	d->frame = av_frame_alloc();
	d->pkt = av_packet_alloc();
	return d;
}

// Returns 0 if a frame was produced, 1 if the decoder needs more data
// (not an error), -1 on a hard decode error.
static int h264dec_decode(h264dec *d, const uint8_t *data, int size) {
	d->pkt->data = (uint8_t *)data;
	d->pkt->size = size;

	int ret = avcodec_send_packet(d->ctx, d->pkt);
	if (ret < 0 && ret != AVERROR(EAGAIN) && ret != AVERROR_EOF) return -1;

	ret = avcodec_receive_frame(d->ctx, d->frame);
	if (ret < 0) return 1;
	return 0;
}

static void h264dec_flush(h264dec *d) { avcodec_flush_buffers(d->ctx); }

static void h264dec_close(h264dec *d) {
	if (!d) return;
	if (d->pkt) av_packet_free(&d->pkt);
	if (d->frame) av_frame_free(&d->frame);
	if (d->ctx) avcodec_free_context(&d->ctx);
	free(d);
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

// h264Decoder wraps libavcodec via cgo, grounded on
// _examples/original_source/addons/h264_decoder/src/h264_decoder.cpp's
// decode_frame: it tries a hardware decoder (NVDEC) first, then software,
// and exposes AVFrame's planes for pack.go to turn into the packed-YUV
// layout. Preserves the original's unsafe zero-copy-into-decode-buffer
// pattern: the byte slice handed to Decode must outlive the cgo call,
// which it does here because Decode only reads from it synchronously
// before returning.
type h264Decoder struct {
	d *C.h264dec
}

// NewH264Decoder opens a session-local decode context.
func NewH264Decoder() (*h264Decoder, error) {
	d := C.h264dec_open()
	if d == nil {
		return nil, errors.New("decoder: no H.264 decoder available")
	}
	return &h264Decoder{d: d}, nil
}

func (h *h264Decoder) Decode(nalData []byte) (*DecodedImage, error) {
	var srcPtr *C.uint8_t
	if len(nalData) > 0 {
		srcPtr = (*C.uint8_t)(unsafe.Pointer(&nalData[0]))
	}
	ret := C.h264dec_decode(h.d, srcPtr, C.int(len(nalData)))
	if ret < 0 {
		return nil, errors.New("decoder: avcodec_send_packet failed")
	}
	if ret == 1 {
		return nil, nil // needs more data; not an error
	}

	frame := h.d.frame
	format := pixFmt(frame.format)
	width, height := int(frame.width), int(frame.height)

	img := &DecodedImage{Format: format, Width: width, Height: height}
	img.Y = Plane{Data: planeBytes(frame, 0, int(frame.linesize[0])*height), Stride: int(frame.linesize[0])}

	switch format {
	case FormatYUV420P, FormatYUVJ420P, FormatYUV422P:
		uvH := height / 2
		if format == FormatYUV422P {
			uvH = height
		}
		img.U = Plane{Data: planeBytes(frame, 1, int(frame.linesize[1])*uvH), Stride: int(frame.linesize[1])}
		img.V = Plane{Data: planeBytes(frame, 2, int(frame.linesize[2])*uvH), Stride: int(frame.linesize[2])}
	case FormatNV12, FormatNV21:
		uvH := height / 2
		img.U = Plane{Data: planeBytes(frame, 1, int(frame.linesize[1])*uvH), Stride: int(frame.linesize[1])}
	}
	return img, nil
}

func planeBytes(frame *C.AVFrame, idx int, size int) []byte {
	ptr := frame.data[idx]
	if ptr == nil || size <= 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(ptr), C.int(size))
}

func pixFmt(f C.int) PixelFormat {
	switch f {
	case C.AV_PIX_FMT_YUV420P:
		return FormatYUV420P
	case C.AV_PIX_FMT_YUVJ420P:
		return FormatYUVJ420P
	case C.AV_PIX_FMT_NV12:
		return FormatNV12
	case C.AV_PIX_FMT_NV21:
		return FormatNV21
	case C.AV_PIX_FMT_YUV422P, C.AV_PIX_FMT_YUVJ422P:
		return FormatYUV422P
	default:
		return FormatUnknown
	}
}

func (h *h264Decoder) Reset() { C.h264dec_flush(h.d) }

func (h *h264Decoder) Close() error {
	C.h264dec_close(h.d)
	return nil
}
