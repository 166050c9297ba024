package radioclient

import (
	"sync"

	"github.com/lonelyradio/lonelyradio/internal/sink"
)

// lazySink defers opening the real PulseAudio sink until the format is
// known. control.Sink has no Open step of its own; sink.Open needs
// channels/sampleRate upfront, but the pacing core only learns those from
// the first TrackMetadata it reads internally. Enqueue's own parameters
// carry the format, so the first Enqueue call opens (or reopens, on a
// format change across tracks) the underlying PulseSink.
type lazySink struct {
	mu sync.Mutex
	ps *sink.PulseSink

	channels   int
	sampleRate int
	gain       float32
}

func newLazySink(initialGain float32) *lazySink {
	return &lazySink{gain: initialGain}
}

func (l *lazySink) Enqueue(samples []float32, channels, sampleRate int) error {
	l.mu.Lock()
	if l.ps == nil || l.channels != channels || l.sampleRate != sampleRate {
		if l.ps != nil {
			_ = l.ps.Close()
		}
		ps, err := sink.Open(channels, sampleRate)
		if err != nil {
			l.mu.Unlock()
			return err
		}
		if err := ps.SetGain(l.gain); err != nil {
			l.mu.Unlock()
			return err
		}
		l.ps = ps
		l.channels = channels
		l.sampleRate = sampleRate
	}
	ps := l.ps
	l.mu.Unlock()
	return ps.Enqueue(samples, channels, sampleRate)
}

func (l *lazySink) QueuedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ps == nil {
		return 0
	}
	return l.ps.QueuedCount()
}

func (l *lazySink) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ps == nil {
		return nil
	}
	return l.ps.Pause()
}

func (l *lazySink) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ps == nil {
		return nil
	}
	return l.ps.Resume()
}

func (l *lazySink) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ps == nil {
		return nil
	}
	return l.ps.Clear()
}

func (l *lazySink) SetGain(gain float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gain = gain
	if l.ps == nil {
		return nil
	}
	return l.ps.SetGain(gain)
}

func (l *lazySink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ps == nil {
		return nil
	}
	return l.ps.Close()
}
