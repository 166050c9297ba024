// Package pacing implements the playback pacing core of spec §4.5: a
// bounded producer/consumer pipeline between the decoder pipeline and the
// external sink, with cooperative cancellation, pause, and gapless track
// transitions.
package pacing

import (
	"time"

	"github.com/lonelyradio/lonelyradio/internal/bufpool"
	"github.com/lonelyradio/lonelyradio/internal/codec/decoder"
	"github.com/lonelyradio/lonelyradio/internal/control"
	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
	"github.com/lonelyradio/lonelyradio/internal/logger"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// pollInterval is the cancellation-check granularity of spec §4.5
// ("interrupted at ≤10 ms granularity").
const pollInterval = 10 * time.Millisecond

// Reader is the subset of protocol.ClientConn the core needs.
type Reader interface {
	ReadPlayMessage() (wire.PlayMessage, error)
	ReadFragment(n uint64) ([]byte, error)
}

// cacheThreshold implements spec §4.5's per-encoder thresholds: 32 for PCM
// variants, 4 for compressed codecs.
func cacheThreshold(enc wire.Encoder) int {
	switch enc {
	case wire.Pcm16, wire.PcmFloat:
		return 32
	default:
		return 4
	}
}

// Core drives the Streaming phase of spec §4.2/§4.4/§4.5 for one
// connection.
type Core struct {
	conn    Reader
	surface *control.Surface
}

func New(conn Reader, surface *control.Surface) *Core {
	return &Core{conn: conn, surface: surface}
}

// Run consumes PlayMessages until the connection ends or a cancellation is
// observed. It returns nil on an observed Resetting. When the connection
// ends it returns the read error as is (io.EOF on a clean close).
func (c *Core) Run() error {
	var state *decoder.State
	var track wire.TrackMetadata
	firstTrack := true

	for {
		if c.surface.ObserveResetting() {
			c.reset()
			return nil
		}
		if c.waitWhilePaused() {
			c.reset()
			return nil
		}

		msg, err := c.conn.ReadPlayMessage()
		if err != nil {
			return err
		}

		switch msg.Kind {
		case wire.PlayMessageT:
			if !firstTrack {
				if cancelled := c.drainSinkOrCancel(); cancelled {
					c.reset()
					return nil
				}
			}
			firstTrack = false
			track = *msg.Track
			state = decoder.NewState(track.Encoder, int(track.Channels))
			c.surface.PublishMetadata(track)
			logger.Debug("track started", "title", track.Title, "id", track.ID, "encoder", track.Encoder.String())

		case wire.PlayMessageF:
			if state == nil {
				return lrerrors.NewProtocolError("pacing.fragment_before_track", nil)
			}
			payload, err := c.conn.ReadFragment(msg.Fragment.Length)
			if err != nil {
				return err
			}
			samples, decErr := state.Decode(payload, msg.Fragment.MagicCookie)
			bufpool.Put(payload)
			if decErr != nil {
				return decErr
			}

			frameCount := 0
			if track.Channels > 0 {
				frameCount = len(samples) / int(track.Channels)
			}
			if cancelled := c.waitForRoom(track, frameCount); cancelled {
				c.reset()
				return nil
			}

			sink := c.surface.Sink()
			if sink == nil {
				return lrerrors.NewUnavailableSinkError(nil)
			}
			if err := sink.Enqueue(samples, int(track.Channels), int(track.SampleRate)); err != nil {
				return lrerrors.NewUnavailableSinkError(err)
			}
		}
	}
}

// waitForRoom implements spec §4.5's bounded-buffer backpressure: while the
// sink's queued count is at or above the track's cache threshold, sleep an
// estimated "one buffer" of wall time, polling for cancellation at
// pollInterval granularity.
func (c *Core) waitForRoom(track wire.TrackMetadata, samplesInFragment int) (cancelled bool) {
	sink := c.surface.Sink()
	if sink == nil {
		return false
	}
	threshold := cacheThreshold(track.Encoder)
	for {
		if c.surface.ObserveResetting() {
			return true
		}
		queued := sink.QueuedCount()
		if queued < threshold {
			return false
		}
		sleepFor := estimateBufferDuration(queued, samplesInFragment, track.SampleRate)
		if !c.sleepInterruptible(sleepFor) {
			return true
		}
	}
}

// estimateBufferDuration mirrors spec §4.5's literal formula:
// max(queued-2, 0.25) * samples_in_fragment / sample_rate / 4.
func estimateBufferDuration(queued, samplesInFragment int, sampleRate uint32) time.Duration {
	factor := float64(queued - 2)
	if factor < 0.25 {
		factor = 0.25
	}
	rate := float64(sampleRate)
	if rate == 0 {
		rate = 44100
	}
	frag := float64(samplesInFragment)
	if frag <= 0 {
		frag = 1
	}
	secs := factor * frag / rate / 4
	if secs <= 0 {
		return pollInterval
	}
	return time.Duration(secs * float64(time.Second))
}

// sleepInterruptible sleeps up to d, checking for a Resetting observation
// every pollInterval; returns false if cancellation was observed.
func (c *Core) sleepInterruptible(d time.Duration) bool {
	if d <= 0 {
		d = pollInterval
	}
	elapsed := time.Duration(0)
	for elapsed < d {
		if c.surface.ObserveResetting() {
			return false
		}
		step := pollInterval
		if remaining := d - elapsed; remaining < step {
			step = remaining
		}
		time.Sleep(step)
		elapsed += step
	}
	return true
}

// waitWhilePaused blocks while the shared state is Paused, polling for
// cancellation. Returns true if cancellation was observed.
func (c *Core) waitWhilePaused() bool {
	for c.surface.ObservePaused() {
		if c.surface.ObserveResetting() {
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}

// drainSinkOrCancel blocks until the sink's queued buffer count reaches
// zero (spec §4.5's gapless boundary) or a cancel is observed.
func (c *Core) drainSinkOrCancel() (cancelled bool) {
	sink := c.surface.Sink()
	if sink == nil {
		return false
	}
	for sink.QueuedCount() > 0 {
		if c.surface.ObserveResetting() {
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}

func (c *Core) reset() {
	if sink := c.surface.Sink(); sink != nil {
		_ = sink.Clear()
	}
	c.surface.FinishReset()
}
