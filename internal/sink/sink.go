// Package sink adapts PulseAudio's native socket protocol (learned from
// Glow's internal/pulse client) into the control.Sink contract that
// internal/pacing drives: enqueue a PCM buffer, report how many buffers are
// still outstanding, pause/resume, clear, and set gain.
package sink

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// PulseSink streams decoded float32 PCM to a local PulseAudio (or
// PipeWire-pulse) server over one playback stream per connection.
type PulseSink struct {
	conn   *pulseConn
	stream *pulseStream

	channels   int
	sampleRate int

	mu     sync.Mutex
	queued int32 // outstanding Enqueue calls not yet estimated as played
	gain   float32
}

// Open dials the local PulseAudio server and creates a playback stream for
// the given format. The stream starts uncorked at full gain.
func Open(channels, sampleRate int) (*PulseSink, error) {
	conn, err := dialPulse()
	if err != nil {
		return nil, err
	}

	stream, err := conn.createPlaybackStream(uint8(channels), uint32(sampleRate))
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &PulseSink{
		conn:       conn,
		stream:     stream,
		channels:   channels,
		sampleRate: sampleRate,
		gain:       1.0,
	}, nil
}

// Close tears down the underlying connection.
func (s *PulseSink) Close() error {
	return s.conn.Close()
}

// Enqueue writes one decoded PCM buffer to the stream. It applies the
// current gain in software (PulseAudio's own per-stream volume is also set
// via SetGain, but software scaling keeps behavior consistent on servers
// that clamp or ignore sink-input volume changes).
func (s *PulseSink) Enqueue(samples []float32, channels, sampleRate int) error {
	s.mu.Lock()
	gain := s.gain
	s.mu.Unlock()

	payload := make([]byte, len(samples)*4)
	for i, v := range samples {
		scaled := v * gain
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(scaled))
	}

	atomic.AddInt32(&s.queued, 1)
	if err := s.stream.write(payload); err != nil {
		atomic.AddInt32(&s.queued, -1)
		return fmt.Errorf("sink: enqueue: %w", err)
	}

	frames := 0
	if channels > 0 {
		frames = len(samples) / channels
	}
	if frames > 0 && sampleRate > 0 {
		dur := time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
		go func() {
			time.Sleep(dur)
			atomic.AddInt32(&s.queued, -1)
		}()
	} else {
		atomic.AddInt32(&s.queued, -1)
	}

	return nil
}

// QueuedCount estimates how many enqueued buffers have not yet finished
// playing, used by internal/pacing's backpressure loop.
func (s *PulseSink) QueuedCount() int {
	n := atomic.LoadInt32(&s.queued)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Pause corks the stream: PulseAudio stops consuming data but keeps what's
// already queued.
func (s *PulseSink) Pause() error {
	return s.stream.cork(true)
}

// Resume uncorks the stream.
func (s *PulseSink) Resume() error {
	return s.stream.cork(false)
}

// Clear flushes all queued audio and resets the local queue estimate.
func (s *PulseSink) Clear() error {
	if err := s.stream.flush(); err != nil {
		return err
	}
	atomic.StoreInt32(&s.queued, 0)
	return nil
}

// SetGain stores the gain for subsequent Enqueue calls and asks the server
// to apply the same gain to the stream's sink-input volume.
func (s *PulseSink) SetGain(gain float32) error {
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()
	return s.stream.setVolume(uint8(s.channels), gain)
}
