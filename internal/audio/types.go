// Package audio implements AudioStage: loopback PCM capture, resampling
// to 48kHz stereo s16, and IMA-ADPCM packet framing.
package audio

import "context"

// Source streams interleaved s16 PCM samples (Channels() channels) at
// whatever rate the OS loopback device provides. Run blocks until ctx is cancelled or the
// device closes.
type Source interface {
	SampleRate() int
	Channels() int
	Run(ctx context.Context, pcm chan<- []int16) error
	Close() error
}
