package control

import (
	"sync"
	"testing"
	"time"

	"github.com/lonelyradio/lonelyradio/internal/wire"
)

type fakeSink struct {
	mu     sync.Mutex
	paused bool
	cleared bool
	gain   float32
}

func (s *fakeSink) Enqueue(samples []float32, channels, sampleRate int) error { return nil }
func (s *fakeSink) QueuedCount() int                                         { return 0 }
func (s *fakeSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	return nil
}
func (s *fakeSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	return nil
}
func (s *fakeSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	return nil
}
func (s *fakeSink) SetGain(g float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = g
	return nil
}

func TestBeginPlayingIsIdempotent(t *testing.T) {
	s := New()
	if !s.BeginPlaying() {
		t.Fatalf("expected first BeginPlaying to succeed")
	}
	if s.BeginPlaying() {
		t.Fatalf("expected second BeginPlaying to be a no-op")
	}
	if s.GetState() != Playing {
		t.Fatalf("expected Playing, got %v", s.GetState())
	}
}

func TestTogglePauseResume(t *testing.T) {
	s := New()
	sink := &fakeSink{}
	s.AttachSink(sink)
	s.BeginPlaying()

	s.Toggle()
	if s.GetState() != Paused {
		t.Fatalf("expected Paused, got %v", s.GetState())
	}
	if !sink.paused {
		t.Fatalf("expected sink.Pause() to have been called")
	}

	s.Toggle()
	if s.GetState() != Playing {
		t.Fatalf("expected Playing, got %v", s.GetState())
	}
	if sink.paused {
		t.Fatalf("expected sink.Resume() to have been called")
	}
}

func TestToggleNoopWhenNotStarted(t *testing.T) {
	s := New()
	s.Toggle()
	if s.GetState() != NotStarted {
		t.Fatalf("expected Toggle to no-op from NotStarted, got %v", s.GetState())
	}
}

func TestStopBlocksUntilPacingCoreFinishesReset(t *testing.T) {
	s := New()
	sink := &fakeSink{}
	s.AttachSink(sink)
	s.BeginPlaying()
	s.PublishMetadata(wire.TrackMetadata{Title: "x"})

	go func() {
		time.Sleep(30 * time.Millisecond)
		if !s.ObserveResetting() {
			t.Errorf("expected Resetting to be observed by pacing core")
		}
		s.FinishReset()
	}()

	s.Stop()

	if s.GetState() != NotStarted {
		t.Fatalf("expected NotStarted after Stop, got %v", s.GetState())
	}
	if s.GetMetadata() != nil {
		t.Fatalf("expected metadata cleared after reset")
	}
	if !sink.cleared {
		t.Fatalf("expected sink.Clear() to have been called")
	}
}

func TestStopNoopFromNotStarted(t *testing.T) {
	s := New()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop() should return immediately from NotStarted")
	}
}

func TestSetVolumeAppliesGainToSink(t *testing.T) {
	s := New()
	sink := &fakeSink{}
	s.AttachSink(sink)

	s.SetVolume(128)
	if s.GetVolume() != 128 {
		t.Fatalf("expected volume 128, got %d", s.GetVolume())
	}
	want := Gain(128)
	if sink.gain != want {
		t.Fatalf("expected gain %v, got %v", want, sink.gain)
	}
}

func TestGainConversion(t *testing.T) {
	if g := Gain(255); g != 1.0 {
		t.Fatalf("expected max volume to map to gain 1.0, got %v", g)
	}
	if g := Gain(0); g != 0.0 {
		t.Fatalf("expected zero volume to map to gain 0.0, got %v", g)
	}
}
