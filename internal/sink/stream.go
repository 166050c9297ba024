package sink

import "fmt"

// pulseStream is a PulseAudio playback stream carrying interleaved
// float32LE PCM, the native sample representation of internal/pacing's
// decoded blocks.
type pulseStream struct {
	conn    *pulseConn
	channel uint32
	index   uint32 // sink_input index, needed for per-stream volume changes
}

func (c *pulseConn) createPlaybackStream(channels uint8, rate uint32) (*pulseStream, error) {
	positions := make([]uint8, channels)
	if channels == 1 {
		positions[0] = channelMono
	} else if channels >= 2 {
		positions[0] = channelFrontLeft
		positions[1] = channelFrontRight
	}

	replyCmd, _, tp, err := c.call(cmdCreatePlaybackStream, func(tb *tagBuilder) {
		tb.addSampleSpec(sampleFloat32LE, channels, rate)
		tb.addChannelMap(channels, positions)
		tb.addU32(0xFFFFFFFF) // sink_index: default
		tb.addStringNull()    // sink_name: default

		tb.addU32(0xFFFFFFFF) // maxlength
		tb.addBool(false)     // corked: start playing immediately
		tb.addU32(0xFFFFFFFF) // tlength
		tb.addU32(0)          // prebuf
		tb.addU32(0xFFFFFFFF) // minreq

		tb.addU32(0) // sync_id

		tb.addCVolume(channels, 0x10000) // PA_VOLUME_NORM

		tb.addBool(false) // no_remap
		tb.addBool(false) // no_remix
		tb.addBool(false) // fix_format
		tb.addBool(false) // fix_rate
		tb.addBool(false) // fix_channels
		tb.addBool(false) // no_move
		tb.addBool(false) // variable_rate

		tb.addBool(false) // muted
		tb.addBool(true)  // adjust_latency
		tb.addPropList(map[string]string{"media.name": "lonelyradio playback"})

		tb.addBool(true)  // volume_set
		tb.addBool(false) // early_requests

		tb.addBool(false) // muted_set
		tb.addBool(false) // dont_inhibit_auto_suspend
		tb.addBool(false) // fail_on_suspend

		tb.addBool(false) // relative_volume
		tb.addBool(false) // passthrough

		tb.addU8(1) // n_formats
		tb.buf = append(tb.buf, tagFormatInfo, tagU8, 1)
		tb.addPropList(map[string]string{})
	})
	if err != nil {
		return nil, fmt.Errorf("sink: create_playback_stream: %w", err)
	}
	if replyCmd == cmdError {
		code, _ := tp.readU32()
		return nil, fmt.Errorf("%w: create_playback_stream (code %d)", errServer, code)
	}
	if replyCmd != cmdReply {
		return nil, fmt.Errorf("%w: create_playback_stream unexpected response %d", errProtocol, replyCmd)
	}

	streamIndex, err := tp.readU32()
	if err != nil {
		return nil, fmt.Errorf("sink: parse stream_index: %w", err)
	}
	sinkInputIndex, err := tp.readU32()
	if err != nil {
		return nil, fmt.Errorf("sink: parse sink_input_index: %w", err)
	}
	if _, err := tp.readU32(); err != nil { // missing
		return nil, fmt.Errorf("sink: parse missing: %w", err)
	}

	return &pulseStream{conn: c, channel: streamIndex, index: sinkInputIndex}, nil
}

// write sends raw PCM payload on the stream's data channel.
func (s *pulseStream) write(data []byte) error {
	return s.conn.writeData(s.channel, data)
}

// cork pauses or resumes the stream without discarding queued audio.
func (s *pulseStream) cork(corked bool) error {
	replyCmd, _, tp, err := s.conn.call(cmdCorkPlaybackStream, func(tb *tagBuilder) {
		tb.addU32(s.channel)
		tb.addBool(corked)
	})
	if err != nil {
		return fmt.Errorf("sink: cork_playback_stream: %w", err)
	}
	if replyCmd == cmdError {
		code, _ := tp.readU32()
		return fmt.Errorf("%w: cork_playback_stream (code %d)", errServer, code)
	}
	return nil
}

// flush discards all queued, not-yet-played audio on the stream.
func (s *pulseStream) flush() error {
	replyCmd, _, tp, err := s.conn.call(cmdFlushPlaybackStream, func(tb *tagBuilder) {
		tb.addU32(s.channel)
	})
	if err != nil {
		return fmt.Errorf("sink: flush_playback_stream: %w", err)
	}
	if replyCmd == cmdError {
		code, _ := tp.readU32()
		return fmt.Errorf("%w: flush_playback_stream (code %d)", errServer, code)
	}
	return nil
}

// setVolume sets the stream's per-channel volume to a [0,1] linear gain.
func (s *pulseStream) setVolume(channels uint8, gain float32) error {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	vol := uint32(gain * 0x10000)

	replyCmd, _, tp, err := s.conn.call(cmdSetSinkInputVolume, func(tb *tagBuilder) {
		tb.addU32(s.index)
		tb.addCVolume(channels, vol)
	})
	if err != nil {
		return fmt.Errorf("sink: set_sink_input_volume: %w", err)
	}
	if replyCmd == cmdError {
		code, _ := tp.readU32()
		return fmt.Errorf("%w: set_sink_input_volume (code %d)", errServer, code)
	}
	return nil
}
