//go:build linux

package encode

/*
#cgo pkg-config: libavcodec libavutil libswscale
#include <libavcodec/avcodec.h>
#include <libavutil/opt.h>
#include <libswscale/swscale.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	AVCodecContext *ctx;
	AVFrame *frame;
	AVPacket *pkt;
	struct SwsContext *sws;
	int width;
	int height;
	int64_t pts;
} h264enc;

// h264enc_open tries hardware encoders in preferred order, then software
// H.264. name_out must point to a buffer of at least 32 bytes.
static h264enc *h264enc_open(int width, int height, int fps, int bitrate_kbps, int gop, char *name_out) {
	h264enc *e = (h264enc *)calloc(1, sizeof(h264enc));
	if (!e) return NULL;
	e->width = width;
	e->height = height;

	static const char *candidates[] = {"h264_nvenc", "h264_amf", "h264_qsv", "libx264"};
	const AVCodec *codec = NULL;
	for (int i = 0; i < 4; i++) {
		codec = avcodec_find_encoder_by_name(candidates[i]);
		if (codec) break;
	}
	if (!codec) { free(e); return NULL; }

	e->ctx = avcodec_alloc_context3(codec);
	if (!e->ctx) { free(e); return NULL; }

	e->ctx->width = width;
	e->ctx->height = height;
	e->ctx->time_base = (AVRational){1, fps};
	e->ctx->framerate = (AVRational){fps, 1};
	e->ctx->pix_fmt = AV_PIX_FMT_YUV420P;
	e->ctx->bit_rate = (int64_t)bitrate_kbps * 1000;
	e->ctx->gop_size = gop;
	e->ctx->max_b_frames = 0;
	e->ctx->flags |= AV_CODEC_FLAG_LOW_DELAY;

	if (strcmp(codec->name, "libx264") == 0) {
		av_opt_set(e->ctx->priv_data, "preset", "ultrafast", 0);
		av_opt_set(e->ctx->priv_data, "tune", "zerolatency", 0);
		av_opt_set(e->ctx->priv_data, "profile", "baseline", 0);
	} else {
		// Hardware families: request their own zero-latency CBR tuning.
		av_opt_set(e->ctx->priv_data, "preset", "p1", 0);
		av_opt_set(e->ctx->priv_data, "tune", "ull", 0);
		av_opt_set(e->ctx->priv_data, "rc", "cbr", 0);
		av_opt_set(e->ctx->priv_data, "zerolatency", "1", 0);
	}

	if (avcodec_open2(e->ctx, codec, NULL) < 0) {
		avcodec_free_context(&e->ctx);
		free(e);
		return NULL;
	}

	e->frame = av_frame_alloc();
	e->frame->format = e->ctx->pix_fmt;
	e->frame->width = width;
	e->frame->height = height;
	av_frame_get_buffer(e->frame, 0);
	e->pkt = av_packet_alloc();

	e->sws = sws_getContext(width, height, AV_PIX_FMT_BGRA,
		width, height, e->ctx->pix_fmt, SWS_FAST_BILINEAR, NULL, NULL, NULL);
	if (!e->sws) {
		av_packet_free(&e->pkt);
		av_frame_free(&e->frame);
		avcodec_free_context(&e->ctx);
		free(e);
		return NULL;
	}

	strncpy(name_out, codec->name, 31);
	return e;
}

static int h264enc_encode(h264enc *e, const uint8_t *bgra, int stride, int force_key,
                           uint8_t **out_buf, int *out_size, int *is_key) {
	*out_size = 0;
	const uint8_t *src_data[1] = { bgra };
	int src_linesize[1] = { stride };

	av_frame_make_writable(e->frame);
	sws_scale(e->sws, src_data, src_linesize, 0, e->height, e->frame->data, e->frame->linesize);
	e->frame->pts = e->pts++;
	if (force_key) e->frame->flags |= AV_FRAME_FLAG_KEY;

	int ret = avcodec_send_frame(e->ctx, e->frame);
	if (ret < 0) return -1;

	ret = avcodec_receive_packet(e->ctx, e->pkt);
	if (ret == AVERROR(EAGAIN) || ret == AVERROR_EOF) return 0;
	if (ret < 0) return -1;

	*out_buf = e->pkt->data;
	*out_size = e->pkt->size;
	*is_key = (e->pkt->flags & AV_PKT_FLAG_KEY) ? 1 : 0;
	return 0;
}

static void h264enc_unref(h264enc *e) { av_packet_unref(e->pkt); }

static void h264enc_close(h264enc *e) {
	if (!e) return;
	if (e->sws) sws_freeContext(e->sws);
	if (e->pkt) av_packet_free(&e->pkt);
	if (e->frame) av_frame_free(&e->frame);
	if (e->ctx) avcodec_free_context(&e->ctx);
	free(e);
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"

	"desktopcast/internal/capture"
)

// h264Codec wraps libavcodec via cgo, mirroring
// richinsley-bunghole/encode.go's hardware-then-software selection and
// zero-latency tuning, generalized to this repo's hardware-agnostic
// candidate list and forced-keyframe flag.
type h264Codec struct {
	e    *C.h264enc
	name string
}

// NewH264Codec opens the first available encoder from the hardware-to-
// software candidate list. gop should be roughly fps*10.
func NewH264Codec(width, height, fps, bitrateKbps, gop int) (*h264Codec, error) {
	nameBuf := make([]byte, 32)
	e := C.h264enc_open(C.int(width), C.int(height), C.int(fps), C.int(bitrateKbps), C.int(gop),
		(*C.char)(unsafe.Pointer(&nameBuf[0])))
	if e == nil {
		return nil, errors.New("encode: no H.264 encoder available (tried nvenc/amf/qsv/libx264)")
	}
	name := C.GoString((*C.char)(unsafe.Pointer(&nameBuf[0])))
	return &h264Codec{e: e, name: name}, nil
}

func (c *h264Codec) Name() string { return c.name }

func (c *h264Codec) Encode(frame *capture.Frame, forceKey bool) (*Frame, error) {
	var outBuf *C.uint8_t
	var outSize, isKey C.int
	stride := frame.Width * 4

	ret := C.h264enc_encode(c.e, (*C.uint8_t)(unsafe.Pointer(&frame.Pixels[0])), C.int(stride),
		boolToC(forceKey), &outBuf, &outSize, &isKey)
	if ret != 0 {
		return nil, errors.New("encode: h264enc_encode failed")
	}
	if outSize == 0 {
		return nil, nil
	}
	data := C.GoBytes(unsafe.Pointer(outBuf), outSize)
	C.h264enc_unref(c.e)

	return &Frame{
		Data:       data,
		CursorU:    frame.CursorU,
		CursorV:    frame.CursorV,
		IsKeyFrame: isKey != 0,
		Sequence:   frame.Sequence,
	}, nil
}

func (c *h264Codec) Close() error {
	C.h264enc_close(c.e)
	return nil
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
