package audio

import (
	"context"
	"testing"
	"time"

	"desktopcast/internal/adpcm"
)

type fakeSource struct {
	rate, channels int
	chunks         [][]int16
}

func (f *fakeSource) SampleRate() int { return f.rate }
func (f *fakeSource) Channels() int   { return f.channels }
func (f *fakeSource) Close() error    { return nil }

func (f *fakeSource) Run(ctx context.Context, pcm chan<- []int16) error {
	for _, c := range f.chunks {
		select {
		case pcm <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestStageEncodesMonoChunkAsStereoPacket(t *testing.T) {
	src := &fakeSource{rate: 48000, channels: 1, chunks: [][]int16{{10, -10, 20, -20}}}
	s := NewStage(src, 4)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	packet := waitForPacket(t, s)
	cancel()

	if len(packet) <= adpcm.HeaderSize {
		t.Fatalf("packet too short: %d bytes", len(packet))
	}
	if _, err := adpcm.DecodePacket(packet); err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
}

func TestStageSkipsStereoResampleWhenRateMatches(t *testing.T) {
	src := &fakeSource{rate: 48000, channels: 2, chunks: [][]int16{{1, 2, 3, 4, 5, 6}}}
	s := NewStage(src, 4)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	packet := waitForPacket(t, s)
	cancel()

	pcm, err := adpcm.DecodePacket(packet)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if len(pcm) != 6 {
		t.Fatalf("len(pcm) = %d, want 6", len(pcm))
	}
}

func waitForPacket(t *testing.T, s *Stage) []byte {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Output().Len() > 0 {
			p, ok := s.Output().Pop()
			if ok {
				return p
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for encoded packet")
	return nil
}

func TestMonoToStereo(t *testing.T) {
	out := monoToStereo([]int16{5, -5})
	want := []int16{5, 5, -5, -5}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("monoToStereo = %v, want %v", out, want)
		}
	}
}
