package encoder

import (
	"bytes"
	"fmt"

	pflac "github.com/pchchv/flac"
	"github.com/pchchv/flac/frame"
	"github.com/pchchv/flac/meta"
)

// flacBitsPerSample matches spec §4.4's note that the server packs 24-bit
// samples into FLAC's 32-bit sample container; the client normalizes by
// dividing by 32768*256.
const flacBitsPerSample = 24

// flacEncodeChunk encodes one chunk of interleaved float32 samples
// (channels * blockSize samples) as a standalone FLAC stream: a STREAMINFO
// header followed by one frame carrying verbatim (uncompressed) subframes.
// Verbatim is a spec-valid FLAC subframe type; it trades compression ratio
// for a frame builder that does not need LPC/fixed-predictor coefficient
// search, which the chunked "encode this 16-block slice standalone" wire
// contract does not leave room for anyway (§4.3's per-fragment framing gives
// no cross-fragment prediction history).
func flacEncodeChunk(samples []float32, channels, sampleRate int, frameNumber uint32) ([]byte, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("flac encode: unsupported channel count %d", channels)
	}
	nSamples := len(samples) / channels
	if nSamples == 0 {
		return nil, fmt.Errorf("flac encode: empty chunk")
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(nSamples),
		BlockSizeMax:  uint16(nSamples),
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: flacBitsPerSample,
	}

	var out bytes.Buffer
	enc, err := pflac.NewEncoder(&out, info)
	if err != nil {
		return nil, fmt.Errorf("flac encode: new encoder: %w", err)
	}

	chCode := frame.ChannelsMono
	if channels == 2 {
		chCode = frame.ChannelsLR
	}

	subframes := make([]*frame.Subframe, channels)
	for ch := 0; ch < channels; ch++ {
		ints := make([]int32, nSamples)
		for i := 0; i < nSamples; i++ {
			ints[i] = floatTo24(samples[i*channels+ch])
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   ints,
			NSamples:  nSamples,
		}
	}

	fr := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(nSamples),
			SampleRate:        uint32(sampleRate),
			Channels:          chCode,
			BitsPerSample:     flacBitsPerSample,
			FrameNumber:       frameNumber,
		},
		Subframes: subframes,
	}

	if err := enc.WriteFrame(fr); err != nil {
		return nil, fmt.Errorf("flac encode: write frame: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flac encode: close: %w", err)
	}
	return out.Bytes(), nil
}

// floatTo24 scales a [-1, 1] float sample into a 24-bit signed integer
// packed into an int32 container, matching flacBitsPerSample.
func floatTo24(s float32) int32 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int32(s * 8388607)
}
