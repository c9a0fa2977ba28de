package audio

import (
	"context"
	"log"

	"desktopcast/internal/adpcm"
	"desktopcast/internal/pipeline"
)

const (
	targetSampleRate = 48000
	targetChannels   = 2
)

// Stage captures loopback PCM, resamples it to 48kHz stereo, and encodes
// each chunk into a self-describing IMA-ADPCM packet for FanOut. It is
// the audio-side parallel of encode.Stage.
type Stage struct {
	source  Source
	out     *pipeline.Queue[[]byte]
	encoder *adpcm.Encoder
}

// NewStage wraps source, publishing encoded AudioPacket bytes to a
// drop-oldest queue holding at most queueCapacity packets.
func NewStage(source Source, queueCapacity int) *Stage {
	return &Stage{
		source:  source,
		out:     pipeline.NewQueue[[]byte](queueCapacity),
		encoder: adpcm.NewEncoder(),
	}
}

// Output exposes the queue FanOut reads from.
func (s *Stage) Output() *pipeline.Queue[[]byte] { return s.out }

// Run pulls PCM chunks from the source until ctx is cancelled, resampling
// and IMA-ADPCM-encoding each before publishing.
func (s *Stage) Run(ctx context.Context) {
	pcmCh := make(chan []int16, 4)
	go func() {
		if err := s.source.Run(ctx, pcmCh); err != nil {
			log.Printf("[audio] source stopped: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-pcmCh:
			if !ok {
				return
			}
			pcm := Resample(chunk, s.source.Channels(), s.source.SampleRate(), targetSampleRate)
			if s.source.Channels() == 1 {
				pcm = monoToStereo(pcm)
			}
			if len(pcm) == 0 {
				continue
			}
			s.out.Push(s.encoder.EncodePacket(pcm))
		}
	}
}

func monoToStereo(mono []int16) []int16 {
	out := make([]int16, len(mono)*2)
	for i, v := range mono {
		out[2*i] = v
		out[2*i+1] = v
	}
	return out
}

// Close releases the underlying capture source.
func (s *Stage) Close() error {
	s.out.Close()
	return s.source.Close()
}
