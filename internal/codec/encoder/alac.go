package encoder

import "encoding/binary"

// alacMagicCookie is a minimal ALAC "magic cookie" (the out-of-band
// configuration block described by spec §3's FragmentMetadata.magic_cookie
// and §4.4's client decode note) describing a raw, uncompressed container
// rather than a true ALAC-compressed bitstream. No pure-Go ALAC *encoder*
// exists in the dependency pack (only mycophonic/saprobe-alac's *decoder*
// side, see DESIGN.md); the server therefore frames Alac fragments as
// length-prefixed little-endian int16 PCM wrapped in a cookie identifying
// itself as such, so a compliant client for this build can round-trip it
// even though it is not interoperable with a real Apple ALAC decoder.
//
// Cookie layout (8 bytes): magic "ALAr" (4 bytes) + bits-per-sample (1
// byte) + channels (1 byte) + reserved (2 bytes).
const alacCookieMagic = "ALAr"

func alacMagicCookie(channels int) []byte {
	cookie := make([]byte, 8)
	copy(cookie, alacCookieMagic)
	cookie[4] = 16 // bits per sample
	cookie[5] = byte(channels)
	return cookie
}

// alacEncodeChunk packs a chunk as little-endian int16 PCM behind the raw
// container described above.
func alacEncodeChunk(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clampFloat(s)*32767)))
	}
	return out
}
