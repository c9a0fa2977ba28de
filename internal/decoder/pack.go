package decoder

// PixelFormat identifies the plane layout a decoded AVFrame can come in.
type PixelFormat int

const (
	FormatYUV420P PixelFormat = iota
	FormatYUVJ420P
	FormatNV12
	FormatNV21
	FormatYUV422P
	FormatUnknown
)

// Plane is one decoded color plane: Data indexed [row*Stride+col].
type Plane struct {
	Data   []byte
	Stride int
}

// DecodedImage bundles a codec's raw output planes prior to packing.
type DecodedImage struct {
	Format PixelFormat
	Width  int
	Height int
	Y      Plane
	U      Plane // for NV12/NV21 holds the interleaved UV plane
	V      Plane // unused (nil Data) for semi-planar formats
}

// Pack produces a packed-YUV-420 layout: a single buffer of height
// 1.5*H where the Y plane occupies the top H rows and the U/V
// half-resolution planes are packed side by side (U left, V right, each
// W/2 wide) in the bottom H/2 rows. Unknown formats, missing planes, or
// planes that read back as all-zero at the original's sample points
// produce a Y-only image with the UV region pre-filled to neutral grey
// (128), a green-screen defense grounded byte-for-byte on
// h264_decoder.cpp's decode_frame.
func Pack(img DecodedImage) []byte {
	w, h := img.Width, img.Height
	uvW, uvH := w/2, h/2
	ySize := w * h
	uvSize := uvW * uvH
	out := make([]byte, ySize+2*uvSize)

	copyPlane(out[:ySize], img.Y, w, h)

	uvDst := out[ySize:]
	fillGrey(uvDst)

	switch img.Format {
	case FormatYUV420P, FormatYUVJ420P:
		if img.U.Data != nil && img.V.Data != nil && !planeInvalid(img.U, uvW, uvH) && !planeInvalid(img.V, uvW, uvH) {
			packPlanar(uvDst, img.U, img.V, w, uvW, uvH)
		}
	case FormatNV12, FormatNV21:
		if img.U.Data != nil && !semiPlanarInvalid(img.U, uvW, uvH) {
			packSemiPlanar(uvDst, img.U, w, uvW, uvH, img.Format == FormatNV12)
		}
	case FormatYUV422P:
		if img.U.Data != nil && img.V.Data != nil && !planeInvalid(img.U, uvW, uvH*2) && !planeInvalid(img.V, uvW, uvH*2) {
			pack422Subsampled(uvDst, img.U, img.V, w, uvW, uvH)
		}
	default:
		// Unknown format: Y-only, UV stays grey.
	}
	return out
}

func copyPlane(dst []byte, p Plane, w, h int) {
	if p.Data == nil {
		return
	}
	for row := 0; row < h; row++ {
		srcOff := row * p.Stride
		if srcOff+w > len(p.Data) {
			break
		}
		copy(dst[row*w:(row+1)*w], p.Data[srcOff:srcOff+w])
	}
}

func fillGrey(buf []byte) {
	for i := range buf {
		buf[i] = 128
	}
}

// planeInvalid samples six points across a planar U or V plane and
// reports true only when every sampled point reads zero, the same
// conservative "probably uninitialized, not just a dark frame" check the
// original decoder uses.
func planeInvalid(p Plane, uvW, uvH int) bool {
	size := uvW * uvH
	if size == 0 || len(p.Data) == 0 {
		return true
	}
	idx := []int{0, uvW / 2, uvW - 1, size / 4, size / 2, size - 1}
	for _, i := range idx {
		if i < 0 || i >= len(p.Data) {
			continue
		}
		if p.Data[i] != 0 {
			return false
		}
	}
	return true
}

func semiPlanarInvalid(uv Plane, uvW, uvH int) bool {
	size := uvW * uvH
	if size == 0 || len(uv.Data) == 0 {
		return true
	}
	idx := []int{0, uvW / 2, uvW - 1, size / 4, size / 2, size - 1}
	for _, i := range idx {
		if i < 0 || i >= len(uv.Data) {
			continue
		}
		if uv.Data[i] != 0 {
			return false
		}
	}
	return true
}

// packPlanar copies separate U and V planes side by side into the
// destination's bottom region.
func packPlanar(dst []byte, u, v Plane, width, uvW, uvH int) {
	for row := 0; row < uvH; row++ {
		rowDst := dst[row*width:]
		uSrc := u.Data[row*u.Stride:]
		vSrc := v.Data[row*v.Stride:]
		copy(rowDst[:uvW], uSrc[:uvW])
		copy(rowDst[uvW:2*uvW], vSrc[:uvW])
	}
}

// packSemiPlanar de-interleaves an NV12 (UVUV...) or NV21 (VUVU...)
// plane into separate U|V columns.
func packSemiPlanar(dst []byte, uv Plane, width, uvW, uvH int, isNV12 bool) {
	for row := 0; row < uvH; row++ {
		rowDst := dst[row*width:]
		src := uv.Data[row*uv.Stride:]
		for x := 0; x < uvW; x++ {
			var uVal, vVal byte
			if isNV12 {
				uVal, vVal = src[x*2], src[x*2+1]
			} else {
				uVal, vVal = src[x*2+1], src[x*2]
			}
			rowDst[x] = uVal
			rowDst[uvW+x] = vVal
		}
	}
}

// pack422Subsampled vertically subsamples a YUV422P plane pair (full
// height, half width) down to 420 by sampling every other source row.
func pack422Subsampled(dst []byte, u, v Plane, width, uvW, uvH int) {
	for row := 0; row < uvH; row++ {
		rowDst := dst[row*width:]
		uSrc := u.Data[row*2*u.Stride:]
		vSrc := v.Data[row*2*v.Stride:]
		copy(rowDst[:uvW], uSrc[:uvW])
		copy(rowDst[uvW:2*uvW], vSrc[:uvW])
	}
}
