//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/pkg/errors"
)

const frameDurationMs = 20

// pulseSource captures the default sink's monitor (i.e. loopback of
// whatever is currently playing) via github.com/jfreymuth/pulse, mirroring
// richinsley-bunghole/internal/audio/pulse_linux.go's collector/record
// pipeline. Where that file hands 20ms chunks to an Opus encoder, this
// one hands them onward for IMA-ADPCM framing instead.
type pulseSource struct {
	client     *pulse.Client
	stream     *pulse.RecordStream
	sampleRate int
	channels   int
	collector  *pcmCollector
}

// pcmCollector implements pulse.Writer, accumulating raw S16LE PCM.
type pcmCollector struct {
	mu  sync.Mutex
	buf []int16
}

func (p *pcmCollector) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(data) / 2
	for i := 0; i < n; i++ {
		p.buf = append(p.buf, int16(binary.LittleEndian.Uint16(data[i*2:i*2+2])))
	}
	return len(data), nil
}

func (p *pcmCollector) Format() byte { return proto.FormatInt16LE }

func (p *pcmCollector) drain(count int) []int16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) < count {
		return nil
	}
	out := make([]int16, count)
	copy(out, p.buf[:count])
	p.buf = p.buf[count:]
	return out
}

// NewPulseSource opens a PulseAudio client and prepares to record the
// default sink's monitor at sampleRate/channels.
func NewPulseSource(sampleRate, channels int) (*pulseSource, error) {
	client, err := pulse.NewClient(pulse.ClientApplicationName("desktopcastd"))
	if err != nil {
		return nil, errors.Wrap(err, "audio: pulse connect")
	}
	return &pulseSource{client: client, sampleRate: sampleRate, channels: channels}, nil
}

func (s *pulseSource) SampleRate() int { return s.sampleRate }
func (s *pulseSource) Channels() int   { return s.channels }

func (s *pulseSource) Run(ctx context.Context, pcm chan<- []int16) error {
	sink, err := s.client.DefaultSink()
	if err != nil {
		return errors.Wrap(err, "audio: default sink")
	}

	s.collector = &pcmCollector{}
	frameSize := s.sampleRate * frameDurationMs / 1000

	opts := []pulse.RecordOption{
		pulse.RecordMonitor(sink),
		pulse.RecordSampleRate(s.sampleRate),
		pulse.RecordBufferFragmentSize(uint32(frameSize * s.channels * 2)),
	}
	if s.channels == 2 {
		opts = append(opts, pulse.RecordStereo)
	} else {
		opts = append(opts, pulse.RecordMono)
	}

	stream, err := s.client.NewRecord(s.collector, opts...)
	if err != nil {
		return errors.Wrap(err, "audio: new record stream")
	}
	s.stream = stream
	stream.Start()
	defer stream.Stop()

	samplesPerFrame := frameSize * s.channels
	ticker := time.NewTicker(frameDurationMs * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			chunk := s.collector.drain(samplesPerFrame)
			if chunk == nil {
				continue
			}
			select {
			case pcm <- chunk:
			default: // never block the producer; caller's queue drops oldest
			}
		}
	}
}

func (s *pulseSource) Close() error {
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	s.client.Close()
	return nil
}
