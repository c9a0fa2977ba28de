//go:build !linux

package audio

import (
	"context"

	"github.com/pkg/errors"
)

// noSource reports the audio backend as unavailable everywhere but
// linux. The caller logs the error and disables the audio stage rather
// than failing the whole process.
type noSource struct{ sampleRate, channels int }

// NewPulseSource is unavailable outside linux; EncodeStage's caller
// should log and disable AudioStage when this errors.
func NewPulseSource(sampleRate, channels int) (*noSource, error) {
	return nil, errors.New("audio: no loopback backend built for this platform")
}

func (n *noSource) SampleRate() int { return n.sampleRate }
func (n *noSource) Channels() int   { return n.channels }
func (n *noSource) Run(ctx context.Context, pcm chan<- []int16) error {
	return errors.New("audio: no loopback backend built for this platform")
}
func (n *noSource) Close() error { return nil }
