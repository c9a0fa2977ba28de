// Package wire implements the binary video/audio frame layouts exchanged
// over the WebSocket transport. Frame encode/decode live in one place so
// the server's FanOut and the viewer's Decoder can never drift out of
// sync on byte order.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FrameType is the leading byte of every binary video/audio message.
type FrameType uint8

const (
	FrameTypeP           FrameType = 0
	FrameTypeI           FrameType = 1
	FrameTypeCursorOnly  FrameType = 2
	FrameTypeAudio       FrameType = 3
)

// videoHeaderSize is offset of the payload in a new-format video frame:
// 1 type byte + 4 bytes cursor_u + 4 bytes cursor_v.
const videoHeaderSize = 9

// legacyHeaderSize is the byte count of the pre-type-byte format: 4 bytes
// cursor_u + 4 bytes cursor_v, no type byte, JPEG payload only.
const legacyHeaderSize = 8

// EncodeVideo builds a type 0/1/2 wire frame: type byte, cursor_u,
// cursor_v (little-endian float32), then the codec payload. payload is
// nil for FrameTypeCursorOnly.
func EncodeVideo(t FrameType, cursorU, cursorV float32, payload []byte) []byte {
	buf := make([]byte, videoHeaderSize+len(payload))
	buf[0] = byte(t)
	binary.LittleEndian.PutUint32(buf[1:5], math.Float32bits(cursorU))
	binary.LittleEndian.PutUint32(buf[5:9], math.Float32bits(cursorV))
	copy(buf[videoHeaderSize:], payload)
	return buf
}

// EncodeAudio prepends the audio type byte to an already-framed
// AudioPacket (header + nibble payload from package adpcm).
func EncodeAudio(audioPacket []byte) []byte {
	buf := make([]byte, 1+len(audioPacket))
	buf[0] = byte(FrameTypeAudio)
	copy(buf[1:], audioPacket)
	return buf
}

// VideoFrame is a decoded new-format video wire message.
type VideoFrame struct {
	Type    FrameType
	CursorU float32
	CursorV float32
	Payload []byte
}

// isRecognizedType reports whether b is one of the four defined frame
// type bytes.
func isRecognizedType(b byte) bool {
	return b <= byte(FrameTypeAudio)
}

// DecodeVideo parses a binary video message. It accepts both the current
// typed format and the legacy (no type byte, JPEG-only) format. A message
// is read as typed when it is at least 9 bytes long and starts with a
// video type byte (0, 1 or 2); any other message of at least 8 bytes is
// read as legacy.
func DecodeVideo(msg []byte) (VideoFrame, error) {
	if len(msg) >= videoHeaderSize && isRecognizedType(msg[0]) && FrameType(msg[0]) != FrameTypeAudio {
		u := math.Float32frombits(binary.LittleEndian.Uint32(msg[1:5]))
		v := math.Float32frombits(binary.LittleEndian.Uint32(msg[5:9]))
		return VideoFrame{
			Type:    FrameType(msg[0]),
			CursorU: u,
			CursorV: v,
			Payload: msg[videoHeaderSize:],
		}, nil
	}
	if len(msg) >= legacyHeaderSize {
		u := math.Float32frombits(binary.LittleEndian.Uint32(msg[0:4]))
		v := math.Float32frombits(binary.LittleEndian.Uint32(msg[4:8]))
		return VideoFrame{
			Type:    FrameTypeI, // legacy JPEG frames are always independently decodable
			CursorU: u,
			CursorV: v,
			Payload: msg[legacyHeaderSize:],
		}, nil
	}
	return VideoFrame{}, fmt.Errorf("wire: video message too short (%d bytes)", len(msg))
}

// DecodeAudio strips the leading audio type byte, returning the
// AudioPacket bytes ready for adpcm.DecodePacket.
func DecodeAudio(msg []byte) ([]byte, error) {
	if len(msg) < 1 || FrameType(msg[0]) != FrameTypeAudio {
		return nil, fmt.Errorf("wire: not an audio frame")
	}
	return msg[1:], nil
}
