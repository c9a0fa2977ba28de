package decoder

import "testing"

// TestPackNV12DeInterleave verifies that for an NV12 source with
// non-zero U and V, the packed output's UV region holds the
// de-interleaved U samples on the left and V samples on the right.
func TestPackNV12DeInterleave(t *testing.T) {
	const w, h = 4, 4
	y := make([]byte, w*h)
	for i := range y {
		y[i] = 10
	}
	// NV12: interleaved U0 V0 U1 V1 per row, two rows, since uvH=2, uvW=2.
	uv := []byte{
		11, 21, 12, 22,
		13, 23, 14, 24,
	}

	img := DecodedImage{
		Format: FormatNV12,
		Width:  w, Height: h,
		Y: Plane{Data: y, Stride: w},
		U: Plane{Data: uv, Stride: w}, // semi-planar: U field carries the interleaved plane
	}

	out := Pack(img)
	ySize := w * h
	uvW, uvH := w/2, h/2
	uvRegion := out[ySize : ySize+2*uvW*uvH]

	// Row 0: U = [11,12], V = [21,22]
	if uvRegion[0] != 11 || uvRegion[1] != 12 {
		t.Errorf("row0 U = %v, want [11,12]", uvRegion[0:2])
	}
	if uvRegion[2] != 21 || uvRegion[3] != 22 {
		t.Errorf("row0 V = %v, want [21,22]", uvRegion[2:4])
	}
}

// TestPackGreenScreenDefenseOnMissingPlane ensures a missing U plane
// produces a Y-only image with the UV region pre-filled to neutral grey,
// never a garbage/zero artifact.
func TestPackGreenScreenDefenseOnMissingPlane(t *testing.T) {
	const w, h = 4, 4
	y := make([]byte, w*h)

	img := DecodedImage{Format: FormatYUV420P, Width: w, Height: h, Y: Plane{Data: y, Stride: w}}
	out := Pack(img)

	ySize := w * h
	for i, b := range out[ySize:] {
		if b != 128 {
			t.Fatalf("uv byte %d = %d, want 128 (grey)", i, b)
		}
	}
}

// TestPackGreenScreenDefenseOnAllZeroPlane ensures a present-but-all-zero
// U/V plane (the original decoder's "uninitialized" heuristic) is also
// treated as invalid and greyed out rather than rendered as bright green.
func TestPackGreenScreenDefenseOnAllZeroPlane(t *testing.T) {
	const w, h = 4, 4
	y := make([]byte, w*h)
	uvW, uvH := w/2, h/2
	zero := make([]byte, uvW*uvH)

	img := DecodedImage{
		Format: FormatYUV420P, Width: w, Height: h,
		Y: Plane{Data: y, Stride: w},
		U: Plane{Data: zero, Stride: uvW},
		V: Plane{Data: zero, Stride: uvW},
	}
	out := Pack(img)
	ySize := w * h
	for i, b := range out[ySize:] {
		if b != 128 {
			t.Fatalf("uv byte %d = %d, want 128 (grey) for all-zero plane", i, b)
		}
	}
}

func TestPackYUV420PPlanar(t *testing.T) {
	const w, h = 4, 4
	y := make([]byte, w*h)
	uvW, uvH := w/2, h/2
	u := []byte{1, 2, 3, 4}
	v := []byte{5, 6, 7, 8}

	img := DecodedImage{
		Format: FormatYUV420P, Width: w, Height: h,
		Y: Plane{Data: y, Stride: w},
		U: Plane{Data: u, Stride: uvW},
		V: Plane{Data: v, Stride: uvW},
	}
	out := Pack(img)
	ySize := w * h
	uvRegion := out[ySize:]

	if uvRegion[0] != 1 || uvRegion[1] != 2 {
		t.Errorf("row0 U = %v, want [1,2]", uvRegion[0:2])
	}
	if uvRegion[2] != 5 || uvRegion[3] != 6 {
		t.Errorf("row0 V = %v, want [5,6]", uvRegion[2:4])
	}
}
