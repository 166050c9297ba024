// Package decoder implements the client-side decoder pipeline of spec
// §4.4: for each F message it consumes exactly its declared bytes and
// produces interleaved float PCM in [-1, 1].
package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	pflac "github.com/pchchv/flac"

	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// flacNormalizer matches flacBitsPerSample=24 packed into a 32-bit
// container on the encode side (internal/codec/encoder).
const flacNormalizer = 32768 * 256

// State carries per-track decode context: the track's encoder and channel
// count. It does not retain the Alac magic cookie; the raw Alac container
// decodes without it.
type State struct {
	Encoder  wire.Encoder
	Channels int
}

// NewState begins decode state for a freshly-started track.
func NewState(enc wire.Encoder, channels int) *State {
	return &State{Encoder: enc, Channels: channels}
}

// Decode consumes one fragment's payload and magic cookie (non-nil only on
// the first fragment of a track) and returns interleaved float32 PCM. The
// cookie is accepted but not used by any decode path. The reserved Opus,
// Aac and WavPack tags yield a ProtocolError wrapping CodecNotCompiledError.
func (s *State) Decode(payload []byte, cookie []byte) ([]float32, error) {
	switch s.Encoder {
	case wire.Pcm16:
		return decodePcm16(payload), nil
	case wire.PcmFloat:
		return decodePcmFloat(payload), nil
	case wire.Sea:
		return decodeSea(payload), nil
	case wire.Flac:
		return decodeFlac(payload)
	case wire.Alac:
		return decodeAlacRaw(payload), nil
	case wire.Vorbis:
		return decodeVorbisFragment(payload)
	case wire.Opus, wire.Aac, wire.WavPack:
		return nil, lrerrors.NewProtocolError("decode.reserved_encoder", lrerrors.NewCodecNotCompiledError(uint8(s.Encoder)))
	default:
		return nil, lrerrors.NewCodecNotCompiledError(uint8(s.Encoder))
	}
}

func decodePcm16(payload []byte) []float32 {
	n := len(payload) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(payload[i*2:]))
		out[i] = float32(v) / 32767
	}
	return out
}

func decodePcmFloat(payload []byte) []float32 {
	n := len(payload) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(payload[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func decodeSea(payload []byte) []float32 {
	n := len(payload) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(payload[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}

func decodeAlacRaw(payload []byte) []float32 {
	return decodeSea(payload) // same raw int16 container, see alac.go in encoder
}

func decodeFlac(payload []byte) ([]float32, error) {
	stream, err := pflac.NewSeek(bytes.NewReader(payload))
	if err != nil {
		return nil, lrerrors.NewDecodeFailureError("flac", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	var out []float32
	for {
		fr, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return out, lrerrors.NewDecodeFailureError("flac", err)
		}
		n := fr.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				out = append(out, float32(fr.Subframes[ch].Samples[i])/flacNormalizer)
			}
		}
	}
	return out, nil
}
