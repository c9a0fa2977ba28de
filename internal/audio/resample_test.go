package audio

import "testing"

func TestResampleNoOpWhenRatesMatch(t *testing.T) {
	pcm := []int16{1, 2, 3, 4}
	out := Resample(pcm, 2, 48000, 48000)
	if len(out) != len(pcm) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(pcm))
	}
}

func TestResampleUpsamplePreservesEndpoints(t *testing.T) {
	pcm := []int16{0, 100, 200, 300} // mono: 0,100,200,300
	out := Resample(pcm, 1, 8000, 16000)
	if len(out) == 0 {
		t.Fatal("expected non-empty output")
	}
	if out[0] != 0 {
		t.Errorf("first sample = %d, want 0", out[0])
	}
	if out[len(out)-1] != 300 {
		t.Errorf("last sample = %d, want 300", out[len(out)-1])
	}
}

func TestResampleDownsampleHalvesLength(t *testing.T) {
	pcm := make([]int16, 100) // mono
	for i := range pcm {
		pcm[i] = int16(i)
	}
	out := Resample(pcm, 1, 48000, 24000)
	if out == nil {
		t.Fatal("expected non-nil output")
	}
	wantLen := 50
	if abs(len(out)-wantLen) > 1 {
		t.Errorf("len(out) = %d, want ~%d", len(out), wantLen)
	}
}

func TestResampleStereoChannelsIndependent(t *testing.T) {
	// L ramps 0..300, R is constant 1000.
	pcm := []int16{0, 1000, 100, 1000, 200, 1000, 300, 1000}
	out := Resample(pcm, 2, 8000, 16000)
	for i := 0; i < len(out); i += 2 {
		if out[i+1] != 1000 {
			t.Fatalf("right channel sample %d = %d, want constant 1000", i/2, out[i+1])
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
