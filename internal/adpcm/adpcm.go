// Package adpcm implements IMA-ADPCM encoding and decoding for
// interleaved stereo 16-bit PCM, using self-describing packet framing:
// every packet carries the predictor/index state its payload was encoded
// from, so a decoder can resynchronize from any single packet without
// needing the ones before it.
package adpcm

import "encoding/binary"

// HeaderSize is the length in bytes of the per-packet state header.
const HeaderSize = 6

// indexTable is the standard IMA-ADPCM step-index adjustment table, keyed
// by the 4-bit nibble being decoded.
var indexTable = [16]int{-1, -1, -1, -1, 2, 4, 6, 8, -1, -1, -1, -1, 2, 4, 6, 8}

// stepTable is the standard 89-entry IMA-ADPCM step size table.
var stepTable = [89]int{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796, 876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// state tracks the running predictor and step index for one channel.
type state struct {
	predictor int
	index     int
}

// step applies a single 4-bit nibble to the state and returns the
// resulting 16-bit PCM sample. Shared by the encoder's quantizer and the
// decoder so the two directions can never drift apart.
func (s *state) step(nibble byte) int16 {
	st := stepTable[s.index]
	diff := st >> 3
	if nibble&4 != 0 {
		diff += st
	}
	if nibble&2 != 0 {
		diff += st >> 1
	}
	if nibble&1 != 0 {
		diff += st >> 2
	}
	if nibble&8 != 0 {
		s.predictor -= diff
	} else {
		s.predictor += diff
	}
	s.predictor = clampInt(s.predictor, -32768, 32767)
	s.index = clampInt(s.index+indexTable[nibble], 0, len(stepTable)-1)
	return int16(s.predictor)
}

// quantize picks the nibble that best reproduces sample given the current
// predictor, then advances the state through the same step equation the
// decoder uses.
func (s *state) quantize(sample int16) byte {
	diff := int(sample) - s.predictor
	nibble := byte(0)
	if diff < 0 {
		nibble = 8
		diff = -diff
	}
	st := stepTable[s.index]
	mask := byte(4)
	tempStep := st
	for i := 0; i < 3; i++ {
		if diff >= tempStep {
			nibble |= mask
			diff -= tempStep
		}
		tempStep >>= 1
		mask >>= 1
	}
	s.step(nibble)
	return nibble
}

// Header is the 6-byte per-packet predictor/index snapshot that precedes
// every AudioPacket payload: left predictor (int16), left index (uint8),
// right predictor (int16), right index (uint8).
type Header struct {
	LeftPredictor  int16
	LeftIndex      uint8
	RightPredictor int16
	RightIndex     uint8
}

// Marshal writes the header in wire order.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(h.LeftPredictor))
	buf[2] = h.LeftIndex
	binary.LittleEndian.PutUint16(buf[3:5], uint16(h.RightPredictor))
	buf[5] = h.RightIndex
	return buf
}

// ParseHeader reads a 6-byte header from the front of a packet.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errShortHeader
	}
	return Header{
		LeftPredictor:  int16(binary.LittleEndian.Uint16(buf[0:2])),
		LeftIndex:      buf[2],
		RightPredictor: int16(binary.LittleEndian.Uint16(buf[3:5])),
		RightIndex:     buf[5],
	}, nil
}

var errShortHeader = shortHeaderError{}

type shortHeaderError struct{}

func (shortHeaderError) Error() string { return "adpcm: packet shorter than header" }

// Encoder holds the continuously-running left/right predictor state used
// to compress successive loopback audio chunks. Continuity across calls
// gives IMA-ADPCM its usual prediction quality; each call nonetheless
// stamps the state it started from into the packet header so any single
// packet remains independently decodable.
type Encoder struct {
	left, right state
}

// NewEncoder returns an Encoder with zeroed predictor/index state,
// matching the state a freshly-reset decoder expects.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodePacket compresses one chunk of interleaved stereo PCM (len(pcm)
// must be even) into a full wire-ready AudioPacket: 6-byte header
// followed by nibble-packed payload, high nibble left / low nibble right.
func (e *Encoder) EncodePacket(pcm []int16) []byte {
	hdr := Header{
		LeftPredictor:  int16(e.left.predictor),
		LeftIndex:      uint8(e.left.index),
		RightPredictor: int16(e.right.predictor),
		RightIndex:     uint8(e.right.index),
	}
	n := len(pcm) / 2
	out := make([]byte, HeaderSize+n)
	copy(out, hdr.Marshal())
	for i := 0; i < n; i++ {
		l := e.left.quantize(pcm[2*i])
		r := e.right.quantize(pcm[2*i+1])
		out[HeaderSize+i] = l<<4 | r
	}
	return out
}

// DecodePacket reverses EncodePacket: it reads the 6-byte header to seed
// a fresh predictor/index pair (ignoring any decoder state from previous
// packets) and returns interleaved stereo int16 PCM.
func DecodePacket(packet []byte) ([]int16, error) {
	hdr, err := ParseHeader(packet)
	if err != nil {
		return nil, err
	}
	payload := packet[HeaderSize:]
	left := state{predictor: int(hdr.LeftPredictor), index: int(hdr.LeftIndex)}
	right := state{predictor: int(hdr.RightPredictor), index: int(hdr.RightIndex)}
	out := make([]int16, 2*len(payload))
	for i, b := range payload {
		out[2*i] = left.step(b >> 4)
		out[2*i+1] = right.step(b & 0x0f)
	}
	return out, nil
}

// DecodeFloat normalizes decoded PCM samples into [-1, 1] for the
// viewer's float-domain mixer.
func DecodeFloat(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}
