// Package encoder implements the server-side encoder pipeline of spec
// §4.3: it adapts an internal/audio.Source into the wire's PlayMessage
// stream, one T followed by zero or more F+payload pairs per track.
package encoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/lonelyradio/lonelyradio/internal/audio"
	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
	"github.com/lonelyradio/lonelyradio/internal/logger"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// Writer is the subset of protocol.ServerConn the pipeline needs; keeping it
// as a narrow interface lets tests supply an in-memory fake.
type Writer interface {
	WritePlayMessage(wire.PlayMessage) error
	WriteFragment([]byte) error
}

// Config carries the server-wide encode limits (spec §4.3).
type Config struct {
	MaxSampleRate uint32
	ArtworkCap    int
}

// Track bundles one playable item's decode source, tags, and the
// freshly-generated id the dispatcher assigns it.
type Track struct {
	Source audio.Source
	Tags   audio.Tags
	ID     uint8
}

// EncodeTrack runs one track end to end: writes its T message, then
// repeatedly pulls blocks from the source, aggregates them per the
// chunking policy, encodes, and writes F+payload pairs. Returns io.EOF-free
// nil on a clean end of track. Errors from w are returned unwrapped; chunk
// collection and encode failures are returned wrapped with context. Telling
// the two apart (end the connection or skip the track) is left to the
// caller.
func EncodeTrack(w Writer, track Track, settings wire.Settings, cfg Config) error {
	src := track.Source
	channels := src.Channels()
	if channels < 1 {
		return fmt.Errorf("encode track: invalid channel count %d", channels)
	}
	rateCap := encoderRateCap(settings.Encoder, cfg.MaxSampleRate)
	outRate := chooseSampleRate(uint32(src.SampleRate()), rateCap)

	cover, err := resolveCover(track.Tags.Cover, settings.Cover, cfg.ArtworkCap)
	if err != nil {
		logger.Warn("cover preparation failed, omitting artwork", "error", err)
		cover = nil
	}

	secs, frac := splitDuration(src.DurationSecs())
	trackMeta := wire.TrackMetadata{
		TrackLengthSecs: secs,
		TrackLengthFrac: frac,
		Channels:        uint16(channels),
		SampleRate:      outRate,
		Encoder:         settings.Encoder,
		Title:           track.Tags.Title,
		Album:           track.Tags.Album,
		Artist:          track.Tags.Artist,
		Cover:           cover,
		ID:              track.ID,
	}
	if err := w.WritePlayMessage(wire.NewTrackMessage(trackMeta)); err != nil {
		return err
	}

	blocksPerChunk := chunkBlocks[settings.Encoder]
	if blocksPerChunk < 1 {
		blocksPerChunk = 1
	}

	var frameNumber uint32
	firstChunk := true
	for {
		chunk, err := collectChunk(src, blocksPerChunk)
		if len(chunk) == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("collect chunk: %w", err)
			}
			return nil
		}

		if uint32(src.SampleRate()) != outRate {
			chunk = resampleLinear(chunk, channels, uint32(src.SampleRate()), outRate)
		}

		payload, cookie, encErr := encodeChunk(settings.Encoder, chunk, channels, int(outRate), frameNumber)
		if encErr != nil {
			return fmt.Errorf("encode chunk: %w", encErr)
		}
		frameNumber++

		fm := wire.FragmentMetadata{Length: uint64(len(payload))}
		if firstChunk {
			fm.MagicCookie = cookie
		}
		firstChunk = false

		if err := w.WritePlayMessage(wire.NewFragmentMessage(fm)); err != nil {
			return err
		}
		if err := w.WriteFragment(payload); err != nil {
			return err
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func resolveCover(original []byte, cover int32, artworkCap int) ([]byte, error) {
	if cover < 0 {
		return nil, nil
	}
	return prepareCover(original, cover, artworkCap)
}

func splitDuration(secs float64) (uint64, float32) {
	if secs < 0 {
		secs = 0
	}
	whole := uint64(secs)
	frac := float32(secs - float64(whole))
	return whole, frac
}

// collectChunk pulls up to n blocks from src and concatenates their
// interleaved samples. It returns whatever it collected alongside io.EOF if
// the source was exhausted mid-collection (a short final chunk is still
// encoded and sent).
func collectChunk(src audio.Source, n int) ([]float32, error) {
	var out []float32
	for i := 0; i < n; i++ {
		block, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, io.EOF
			}
			return out, err
		}
		out = append(out, block.Samples...)
	}
	return out, nil
}

func encodeChunk(enc wire.Encoder, samples []float32, channels, sampleRate int, frameNumber uint32) (payload []byte, cookie []byte, err error) {
	switch enc {
	case wire.Pcm16:
		return pcm16Encode(samples), nil, nil
	case wire.PcmFloat:
		return pcmFloatEncode(samples), nil, nil
	case wire.Sea:
		return seaEncode(samples), nil, nil
	case wire.Flac:
		b, err := flacEncodeChunk(samples, channels, sampleRate, frameNumber)
		return b, nil, err
	case wire.Alac:
		b := alacEncodeChunk(samples)
		var ck []byte
		if frameNumber == 0 {
			ck = alacMagicCookie(channels)
		}
		return b, ck, nil
	default:
		return nil, nil, lrerrors.NewCodecNotCompiledError(uint8(enc))
	}
}
