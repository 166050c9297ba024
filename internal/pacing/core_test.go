package pacing

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lonelyradio/lonelyradio/internal/control"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

type fakeSink struct {
	mu      sync.Mutex
	queued  int
	cleared bool
	gain    float32
}

func (s *fakeSink) Enqueue(samples []float32, channels, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued++
	return nil
}
func (s *fakeSink) QueuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued
}
func (s *fakeSink) Pause() error  { return nil }
func (s *fakeSink) Resume() error { return nil }
func (s *fakeSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = 0
	s.cleared = true
	return nil
}
func (s *fakeSink) SetGain(g float32) error {
	s.gain = g
	return nil
}

type scriptedReader struct {
	messages []wire.PlayMessage
	payloads [][]byte
	i, p     int
}

func (r *scriptedReader) ReadPlayMessage() (wire.PlayMessage, error) {
	if r.i >= len(r.messages) {
		return wire.PlayMessage{}, io.EOF
	}
	m := r.messages[r.i]
	r.i++
	return m, nil
}

func (r *scriptedReader) ReadFragment(n uint64) ([]byte, error) {
	if r.p >= len(r.payloads) {
		return nil, io.EOF
	}
	b := r.payloads[r.p]
	r.p++
	return b, nil
}

func TestGaplessBoundaryWaitsForDrain(t *testing.T) {
	track1 := wire.TrackMetadata{Channels: 2, SampleRate: 48000, Encoder: wire.Pcm16, ID: 1}
	track2 := wire.TrackMetadata{Channels: 2, SampleRate: 48000, Encoder: wire.Pcm16, ID: 2}
	frag := wire.FragmentMetadata{Length: 8}

	reader := &scriptedReader{
		messages: []wire.PlayMessage{
			wire.NewTrackMessage(track1),
			wire.NewFragmentMessage(frag),
			wire.NewTrackMessage(track2),
		},
		payloads: [][]byte{make([]byte, 8)},
	}

	surface := control.New()
	sink := &fakeSink{}
	surface.AttachSink(sink)

	core := New(reader, surface)
	done := make(chan error, 1)
	go func() { done <- core.Run() }()

	time.Sleep(50 * time.Millisecond)
	sink.Clear() // simulate drain

	select {
	case err := <-done:
		if err != io.EOF {
			t.Fatalf("expected clean EOF exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for pacing core")
	}

	if got := surface.GetMetadata(); got == nil || got.ID != 2 {
		t.Fatalf("expected metadata updated to track 2 after drain, got %+v", got)
	}
}

func TestStopCancelsPacingLoop(t *testing.T) {
	track := wire.TrackMetadata{Channels: 2, SampleRate: 48000, Encoder: wire.Alac, ID: 9}
	reader := &blockingReader{track: track}

	surface := control.New()
	sink := &fakeSink{queued: 10}
	surface.AttachSink(sink)
	surface.BeginPlaying()

	core := New(reader, surface)
	done := make(chan error, 1)
	go func() { done <- core.Run() }()

	time.Sleep(30 * time.Millisecond)
	go surface.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for cancellation")
	}
	if surface.GetState() != control.NotStarted {
		t.Fatalf("expected NotStarted after stop, got %v", surface.GetState())
	}
}

// blockingReader emits one track message then an endless stream of tiny
// fragments so the test can observe Stop() interrupting the backpressure
// wait loop.
type blockingReader struct {
	track  wire.TrackMetadata
	sentT  bool
}

func (r *blockingReader) ReadPlayMessage() (wire.PlayMessage, error) {
	if !r.sentT {
		r.sentT = true
		return wire.NewTrackMessage(r.track), nil
	}
	return wire.NewFragmentMessage(wire.FragmentMetadata{Length: 4}), nil
}

func (r *blockingReader) ReadFragment(n uint64) ([]byte, error) {
	return make([]byte, n), nil
}
