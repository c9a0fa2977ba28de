//go:build linux

package encode

func (s *Stage) openHardwareThenSoftware(width, height int) (Codec, error) {
	return NewH264Codec(width, height, s.fps, s.bitrateKbps, s.gop)
}
