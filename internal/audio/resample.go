package audio

// Resample converts interleaved PCM at fromRate to toRate using linear
// interpolation per channel.
func Resample(pcm []int16, channels, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(pcm) == 0 {
		return pcm
	}
	frames := len(pcm) / channels
	outFrames := int(int64(frames) * int64(toRate) / int64(fromRate))
	if outFrames < 1 {
		return nil
	}
	out := make([]int16, outFrames*channels)
	ratio := float64(frames-1) / float64(outFrames-1)
	if outFrames == 1 {
		ratio = 0
	}
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		lo := int(srcPos)
		hi := lo + 1
		if hi >= frames {
			hi = frames - 1
		}
		frac := srcPos - float64(lo)
		for c := 0; c < channels; c++ {
			a := float64(pcm[lo*channels+c])
			b := float64(pcm[hi*channels+c])
			out[i*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}
