package encoder

import (
	"encoding/binary"
	"math"
)

// pcm16Encode packs interleaved float samples as little-endian int16 PCM
// (spec §4.3 Pcm16 row: length = sample_count * 2).
func pcm16Encode(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clampFloat(s)*32767)))
	}
	return out
}

// pcmFloatEncode packs interleaved float samples as little-endian IEEE-754
// float32 (spec §4.3 PcmFloat row: length = sample_count * 4).
func pcmFloatEncode(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// seaEncode is the bespoke Sea codec. Spec §4.4 only defines its decode
// side (int16 samples scaled by 1/32768); the encode side is the same
// little-endian int16 packing as Pcm16, kept as a distinct wire tag since
// Sea is its own codec identity rather than an alias.
func seaEncode(samples []float32) []byte {
	return pcm16Encode(samples)
}

func clampFloat(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
