// Package audio defines the external-collaborator contract for local file
// decoding (spec §1 Non-goals: "decoding a local file to interleaved PCM
// frames... supplies a finite lazy sequence of sample blocks"). The encoder
// pipeline in internal/codec/encoder consumes a Source; it never opens files
// itself.
package audio

import "io"

// Block is one chunk of interleaved float32 PCM samples at the Source's
// native channel count and sample rate.
type Block struct {
	Samples []float32
}

// Source is a finite lazy sequence of PCM sample blocks plus the
// declarations the encoder pipeline needs to build TrackMetadata: channel
// count, sample rate, and total duration.
type Source interface {
	// Next returns the next block of interleaved samples, or io.EOF when the
	// track is exhausted.
	Next() (Block, error)
	Channels() int
	SampleRate() int
	// DurationSecs is the track's total duration, possibly an estimate.
	DurationSecs() float64
	Close() error
}

// Tags describes the track metadata an external tag-extraction collaborator
// supplies alongside a Source (spec §1 Non-goals: "directory traversal and
// tag extraction").
type Tags struct {
	Title  string
	Album  string
	Artist string
	// Cover holds the embedded picture's raw bytes in its original encoding
	// (not necessarily JPEG); the encoder pipeline re-encodes to JPEG only
	// when resizing is requested.
	Cover []byte
}

var ErrExhausted = io.EOF
