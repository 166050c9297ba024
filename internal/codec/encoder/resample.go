package encoder

// resampleLinear downsamples interleaved multi-channel float samples from
// srcRate to dstRate using linear interpolation. This is implemented on the
// standard library alone: none of the pack's dependencies expose a PCM
// resampler (pchchv/flac, mewkiz/flac, jfreymuth/oggvorbis and go-mp3 are
// all format codecs, not sample-rate converters), and linear interpolation
// is sufficient for the spec's downsample-only requirement (§4.3 never
// upsamples, so aliasing headroom is generous).
func resampleLinear(samples []float32, channels int, srcRate, dstRate uint32) []float32 {
	if srcRate == dstRate || srcRate == 0 || dstRate == 0 || channels <= 0 {
		return samples
	}
	frames := len(samples) / channels
	if frames == 0 {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	outFrames := int(float64(frames) / ratio)
	if outFrames < 1 {
		outFrames = 1
	}
	out := make([]float32, outFrames*channels)
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := float32(srcPos - float64(idx))
		for ch := 0; ch < channels; ch++ {
			a := sampleAt(samples, channels, frames, idx, ch)
			b := sampleAt(samples, channels, frames, idx+1, ch)
			out[i*channels+ch] = a + (b-a)*frac
		}
	}
	return out
}

func sampleAt(samples []float32, channels, frames, frame, ch int) float32 {
	if frame >= frames {
		frame = frames - 1
	}
	if frame < 0 {
		frame = 0
	}
	return samples[frame*channels+ch]
}
