package encoder

import (
	"io"
	"testing"

	"github.com/lonelyradio/lonelyradio/internal/audio"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

type fakeWriter struct {
	messages []wire.PlayMessage
	payloads [][]byte
}

func (f *fakeWriter) WritePlayMessage(m wire.PlayMessage) error {
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeWriter) WriteFragment(b []byte) error {
	f.payloads = append(f.payloads, append([]byte(nil), b...))
	return nil
}

type sliceSource struct {
	blocks     [][]float32
	i          int
	channels   int
	sampleRate int
	duration   float64
}

func (s *sliceSource) Next() (audio.Block, error) {
	if s.i >= len(s.blocks) {
		return audio.Block{}, io.EOF
	}
	b := s.blocks[s.i]
	s.i++
	return audio.Block{Samples: b}, nil
}
func (s *sliceSource) Channels() int         { return s.channels }
func (s *sliceSource) SampleRate() int       { return s.sampleRate }
func (s *sliceSource) DurationSecs() float64 { return s.duration }
func (s *sliceSource) Close() error          { return nil }

func newTestSource(channels, sampleRate, framesPerBlock, numBlocks int) *sliceSource {
	blocks := make([][]float32, numBlocks)
	for i := range blocks {
		block := make([]float32, framesPerBlock*channels)
		for j := range block {
			block[j] = 0.1
		}
		blocks[i] = block
	}
	return &sliceSource{blocks: blocks, channels: channels, sampleRate: sampleRate, duration: 1.0}
}

func TestPcm16EncodeTrackOrdering(t *testing.T) {
	src := newTestSource(2, 48000, 4, 1)
	w := &fakeWriter{}
	err := EncodeTrack(w, Track{Source: src, ID: 7}, wire.Settings{Encoder: wire.Pcm16, Cover: -1}, Config{})
	if err != nil {
		t.Fatalf("encode track: %v", err)
	}
	if len(w.messages) == 0 || w.messages[0].Kind != wire.PlayMessageT {
		t.Fatalf("expected first message to be T, got %+v", w.messages)
	}
	for _, m := range w.messages[1:] {
		if m.Kind != wire.PlayMessageF {
			t.Fatalf("expected only F after T, got %+v", m)
		}
	}
	if len(w.payloads) == 0 {
		t.Fatalf("expected at least one fragment payload")
	}
	if len(w.payloads[0]) != 2*2*4 { // 2 channels * 2 bytes * 4 frames in one block
		t.Fatalf("unexpected pcm16 payload size: %d", len(w.payloads[0]))
	}
}

func TestChooseSampleRateNeverUpsamples(t *testing.T) {
	if got := chooseSampleRate(44100, 96000); got != 44100 {
		t.Fatalf("expected no upsample, got %d", got)
	}
	if got := chooseSampleRate(176400, 48000); got != 44100 {
		t.Fatalf("expected largest 44100 multiple <= 48000, got %d", got)
	}
	if got := chooseSampleRate(96000, 48000); got != 48000 {
		t.Fatalf("expected exact 48000 multiple, got %d", got)
	}
}

func TestChunkBlocksPolicy(t *testing.T) {
	cases := map[wire.Encoder]int{
		wire.Pcm16:    1,
		wire.PcmFloat: 1,
		wire.Flac:     16,
		wire.Alac:     32,
		wire.Vorbis:   64,
	}
	for enc, want := range cases {
		if got := chunkBlocks[enc]; got != want {
			t.Fatalf("encoder %v: expected chunk size %d, got %d", enc, want, got)
		}
	}
}

func TestMultiBlockChunkAggregation(t *testing.T) {
	// Pcm16 takes one block per chunk, so 16 ten-frame blocks are not
	// aggregated and come out as 16 separate fragments.
	src := newTestSource(1, 44100, 10, 16)
	w := &fakeWriter{}
	err := EncodeTrack(w, Track{Source: src, ID: 1}, wire.Settings{Encoder: wire.Pcm16, Cover: -1}, Config{})
	if err != nil {
		t.Fatalf("encode track: %v", err)
	}
	fragments := 0
	for _, m := range w.messages {
		if m.Kind == wire.PlayMessageF {
			fragments++
		}
	}
	if fragments != 16 {
		t.Fatalf("expected 16 pcm16 fragments (1 block each), got %d", fragments)
	}
}
