package encoder

import "github.com/lonelyradio/lonelyradio/internal/wire"

// chunkBlocks is spec §4.3's chunking policy: how many decoder blocks are
// aggregated before one encode call. Sea has no table entry in the spec
// (it only defines Sea's decode side); it is treated like Pcm16 since both
// are raw, uncompressed, single-block codecs (see DESIGN.md).
var chunkBlocks = map[wire.Encoder]int{
	wire.Pcm16:    1,
	wire.PcmFloat: 1,
	wire.Flac:     16,
	wire.Alac:     32,
	wire.Vorbis:   64,
	wire.Sea:      1,
}

// encoderRateCap returns the encoder-preferred sample rate ceiling from
// spec §4.3 ("Vorbis/Opus/AAC ≤ 48 kHz, Flac ≤ 96 kHz"), clamped by the
// server's own configured max_samplerate.
func encoderRateCap(enc wire.Encoder, maxSampleRate uint32) uint32 {
	cap := maxSampleRate
	switch enc {
	case wire.Vorbis, wire.Opus, wire.Aac:
		if cap == 0 || cap > 48000 {
			cap = 48000
		}
	case wire.Flac:
		if cap == 0 || cap > 96000 {
			cap = 96000
		}
	}
	return cap
}

// chooseSampleRate implements spec §4.3's downsample-target rule: if the
// source rate exceeds cap, pick the largest multiple of 44100 (or 48000, if
// the source is instead a multiple of that) not exceeding cap; otherwise use
// the cap exactly. Upsampling is never performed.
func chooseSampleRate(sourceRate, cap uint32) uint32 {
	if cap == 0 || sourceRate <= cap {
		return sourceRate
	}
	if sourceRate%44100 == 0 {
		if r := largestMultipleAtMost(44100, cap); r > 0 {
			return r
		}
	}
	if sourceRate%48000 == 0 {
		if r := largestMultipleAtMost(48000, cap); r > 0 {
			return r
		}
	}
	return cap
}

func largestMultipleAtMost(base, cap uint32) uint32 {
	if base == 0 || cap < base {
		return 0
	}
	return (cap / base) * base
}
