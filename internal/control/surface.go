// Package control implements the client control surface of spec §4.7: a
// single process-wide struct (state, volume, metadata, sink) guarded for
// multi-reader/single-writer access, never held across blocking I/O.
package control

import (
	"sync"

	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// PlaybackState is the client's playback state machine.
type PlaybackState uint8

const (
	NotStarted PlaybackState = iota
	Resetting
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Resetting:
		return "resetting"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Sink is the external audio output contract (spec §1 Non-goals: "audio
// output sink... enqueue a PCM buffer, query queued buffer count,
// pause/resume/clear, set gain").
type Sink interface {
	Enqueue(samples []float32, channels, sampleRate int) error
	QueuedCount() int
	Pause() error
	Resume() error
	Clear() error
	SetGain(gain float32) error
}

// Surface is the single shared instance backing spec §4.7's operations.
// Readers and writers briefly take mu; no caller may hold it across a
// blocking I/O call (network read, sink call).
type Surface struct {
	mu       sync.RWMutex
	cond     *sync.Cond
	state    PlaybackState
	volume   uint8 // [0,255] maps linearly to gain [0.0,1.0]
	metadata *wire.TrackMetadata
	sink     Sink
}

func New() *Surface {
	s := &Surface{state: NotStarted, volume: 255}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// AttachSink installs the sink handle the pacing core will drive.
func (s *Surface) AttachSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

func (s *Surface) Sink() Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sink
}

// GetState returns the current playback state.
func (s *Surface) GetState() PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetMetadata returns the current track metadata, or nil before any track
// has started.
func (s *Surface) GetMetadata() *wire.TrackMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// Toggle flips Playing<->Paused; a no-op from any other state.
func (s *Surface) Toggle() {
	s.mu.Lock()
	var call func() error
	switch s.state {
	case Playing:
		s.state = Paused
		if s.sink != nil {
			call = s.sink.Pause
		}
	case Paused:
		s.state = Playing
		if s.sink != nil {
			call = s.sink.Resume
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	if call != nil {
		_ = call()
	}
}

// Stop transitions Playing/Paused to Resetting, instructs the sink to pause
// and clear, then blocks until the pacing core observes Resetting and
// resets to NotStarted. No-op from NotStarted/Resetting.
func (s *Surface) Stop() {
	s.mu.Lock()
	if s.state != Playing && s.state != Paused {
		s.mu.Unlock()
		return
	}
	s.state = Resetting
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		_ = sink.Pause()
		_ = sink.Clear()
	}

	s.mu.Lock()
	for s.state != NotStarted {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// SetVolume stores v and applies the corresponding gain to the sink if one
// is attached.
func (s *Surface) SetVolume(v uint8) {
	s.mu.Lock()
	s.volume = v
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		_ = sink.SetGain(Gain(v))
	}
}

func (s *Surface) GetVolume() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Gain converts a [0,255] volume into a [0.0,1.0] linear gain.
func Gain(v uint8) float32 { return float32(v) / 255 }

// --- internal hooks used by the pacing core ---

// BeginPlaying transitions NotStarted -> Playing; called once the pacing
// core has connected and is about to start the streaming loop. Idempotent:
// returns false if already Playing/Paused (spec §4.7 run() idempotence).
func (s *Surface) BeginPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Playing || s.state == Paused {
		return false
	}
	s.state = Playing
	return true
}

// PublishMetadata atomically replaces the current track metadata. Callers
// (the pacing core) must only call this after observing sink drain for
// non-first tracks, per spec §4.5.
func (s *Surface) PublishMetadata(m wire.TrackMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = &m
}

// ObserveResetting reports whether the shared state is Resetting, the
// cancellation signal the pacing core polls (spec §4.5).
func (s *Surface) ObserveResetting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Resetting
}

// ObservePaused reports whether the shared state is Paused.
func (s *Surface) ObservePaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Paused
}

// FinishReset completes a Resetting->NotStarted transition and wakes any
// goroutine blocked in Stop().
func (s *Surface) FinishReset() {
	s.mu.Lock()
	s.state = NotStarted
	s.metadata = nil
	s.mu.Unlock()
	s.cond.Broadcast()
}
