//go:build !linux

package encode

import "github.com/pkg/errors"

func (s *Stage) openHardwareThenSoftware(width, height int) (Codec, error) {
	return nil, errors.New("encode: no H.264 backend built for this platform")
}
