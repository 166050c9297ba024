package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Command IDs, sample format, and channel-position constants below come
// straight from pulsecore/native-common.h; only the subset this client
// actually sends or parses is declared.
const (
	cmdError                = 0
	cmdTimeout              = 1
	cmdReply                = 2
	cmdCreatePlaybackStream = 3
	cmdDeletePlaybackStream = 4
	cmdExit                 = 7
	cmdAuth                 = 8
	cmdSetClientName        = 9
	cmdDrainPlaybackStream  = 12
	cmdSetSinkInputVolume   = 37
	cmdCorkPlaybackStream   = 42
	cmdFlushPlaybackStream  = 43
	cmdRequest              = 61

	sampleFloat32LE = 5

	channelMono       = 0
	channelFrontLeft  = 1
	channelFrontRight = 2
)

// Tag bytes prefixing each value in the server's tagged-list encoding.
const (
	tagStringNull = 'N'
	tagU32        = 'L'
	tagS64        = 'R'
	tagSampleSpec = 'a'
	tagArbitrary  = 'x'
	tagBoolTrue   = '1'
	tagBoolFalse  = '0'
	tagU8         = 'B'
	tagString     = 't'
	tagChannelMap = 'm'
	tagCVolume    = 'v'
	tagPropList   = 'P'
	tagFormatInfo = 'f'
)

const (
	protocolVersion = 35
	controlChannel  = 0xFFFFFFFF
	descriptorSize  = 20
)

var (
	errServer   = errors.New("sink: pulse server returned error")
	errProtocol = errors.New("sink: pulse protocol error")
)

// buildDescriptor builds the 20-byte frame header PulseAudio's native
// protocol prefixes every frame with: length, channel, and three reserved
// fields (offset_hi, offset_lo, flags) this client never sets.
func buildDescriptor(length, channel uint32) []byte {
	desc := make([]byte, descriptorSize)
	binary.BigEndian.PutUint32(desc[0:], length)
	binary.BigEndian.PutUint32(desc[4:], channel)
	return desc
}

// buildCommand wraps a command ID, a request tag, and an already-encoded
// payload in a descriptor, producing a complete frame ready to write to the
// control channel.
func buildCommand(command, tag uint32, payload []byte) []byte {
	tb := newTagBuilder()
	tb.addU32(command)
	tb.addU32(tag)
	body := append(tb.bytes(), payload...)
	return append(buildDescriptor(uint32(len(body)), controlChannel), body...)
}

// tagBuilder accumulates a command's argument list as tagged values, in the
// order the server's command handler expects to read them back out.
type tagBuilder struct {
	buf []byte
}

func newTagBuilder() *tagBuilder { return &tagBuilder{} }

func (tb *tagBuilder) bytes() []byte { return tb.buf }

func (tb *tagBuilder) addU32(v uint32) {
	tb.buf = append(tb.buf, tagU32)
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	tb.buf = append(tb.buf, b...)
}

func (tb *tagBuilder) addString(s string) {
	tb.buf = append(tb.buf, tagString)
	tb.buf = append(tb.buf, []byte(s)...)
	tb.buf = append(tb.buf, 0)
}

func (tb *tagBuilder) addStringNull() {
	tb.buf = append(tb.buf, tagStringNull)
}

func (tb *tagBuilder) addBool(v bool) {
	if v {
		tb.buf = append(tb.buf, tagBoolTrue)
		return
	}
	tb.buf = append(tb.buf, tagBoolFalse)
}

func (tb *tagBuilder) addU8(v uint8) {
	tb.buf = append(tb.buf, tagU8, v)
}

func (tb *tagBuilder) addArbitrary(data []byte) {
	tb.buf = append(tb.buf, tagArbitrary)
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(len(data)))
	tb.buf = append(tb.buf, b...)
	tb.buf = append(tb.buf, data...)
}

func (tb *tagBuilder) addSampleSpec(format, channels uint8, rate uint32) {
	tb.buf = append(tb.buf, tagSampleSpec, format, channels)
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, rate)
	tb.buf = append(tb.buf, b...)
}

func (tb *tagBuilder) addChannelMap(channels uint8, positions []uint8) {
	tb.buf = append(tb.buf, tagChannelMap, channels)
	tb.buf = append(tb.buf, positions...)
}

func (tb *tagBuilder) addCVolume(channels uint8, volume uint32) {
	tb.buf = append(tb.buf, tagCVolume, channels)
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, volume)
	for i := uint8(0); i < channels; i++ {
		tb.buf = append(tb.buf, b...)
	}
}

// addPropList appends a proplist: each entry is a string key followed by its
// value re-encoded as a length-prefixed arbitrary blob, terminated by
// tagStringNull.
func (tb *tagBuilder) addPropList(props map[string]string) {
	tb.buf = append(tb.buf, tagPropList)
	for k, v := range props {
		tb.addString(k)
		vBytes := append([]byte(v), 0)
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(len(vBytes)))
		tb.buf = append(tb.buf, tagU32)
		tb.buf = append(tb.buf, b...)
		tb.buf = append(tb.buf, tagArbitrary)
		tb.buf = append(tb.buf, b...)
		tb.buf = append(tb.buf, vBytes...)
	}
	tb.buf = append(tb.buf, tagStringNull)
}

// tagParser walks a reply payload one tagged value at a time, in the fixed
// order the command that produced it defines.
type tagParser struct {
	data []byte
	pos  int
}

func newTagParser(data []byte) *tagParser { return &tagParser{data: data} }

func (tp *tagParser) tagByte(want byte, what string) (byte, error) {
	if tp.pos >= len(tp.data) {
		return 0, fmt.Errorf("sink: unexpected end of data reading %s tag byte", what)
	}
	tag := tp.data[tp.pos]
	tp.pos++
	if want != 0 && tag != want {
		return tag, fmt.Errorf("sink: expected tag 0x%02x for %s, got 0x%02x", want, what, tag)
	}
	return tag, nil
}

func (tp *tagParser) readU32() (uint32, error) {
	if _, err := tp.tagByte(tagU32, "u32"); err != nil {
		return 0, err
	}
	if tp.pos+4 > len(tp.data) {
		return 0, fmt.Errorf("sink: unexpected end of data reading u32 value")
	}
	v := binary.BigEndian.Uint32(tp.data[tp.pos:])
	tp.pos += 4
	return v, nil
}

func (tp *tagParser) readString() (string, error) {
	tag, err := tp.tagByte(0, "string")
	if err != nil {
		return "", err
	}
	if tag == tagStringNull {
		return "", nil
	}
	if tag != tagString {
		return "", fmt.Errorf("sink: expected tag_string (0x%02x), got 0x%02x", tagString, tag)
	}
	start := tp.pos
	for tp.pos < len(tp.data) && tp.data[tp.pos] != 0 {
		tp.pos++
	}
	if tp.pos >= len(tp.data) {
		return "", fmt.Errorf("sink: string not null-terminated")
	}
	s := string(tp.data[start:tp.pos])
	tp.pos++
	return s, nil
}

func (tp *tagParser) readArbitrary() ([]byte, error) {
	if _, err := tp.tagByte(tagArbitrary, "arbitrary"); err != nil {
		return nil, err
	}
	if tp.pos+4 > len(tp.data) {
		return nil, fmt.Errorf("sink: unexpected end of data reading arbitrary length")
	}
	length := binary.BigEndian.Uint32(tp.data[tp.pos:])
	tp.pos += 4
	if tp.pos+int(length) > len(tp.data) {
		return nil, fmt.Errorf("sink: arbitrary data truncated")
	}
	data := make([]byte, length)
	copy(data, tp.data[tp.pos:tp.pos+int(length)])
	tp.pos += int(length)
	return data, nil
}

// skipPropList reads and discards a proplist this client has no use for.
func (tp *tagParser) skipPropList() error {
	if _, err := tp.tagByte(tagPropList, "proplist"); err != nil {
		return err
	}
	for {
		if tp.pos >= len(tp.data) {
			return fmt.Errorf("sink: proplist not terminated")
		}
		if tp.data[tp.pos] == tagStringNull {
			tp.pos++
			return nil
		}
		if _, err := tp.readString(); err != nil {
			return err
		}
		if _, err := tp.readU32(); err != nil {
			return err
		}
		if _, err := tp.readArbitrary(); err != nil {
			return err
		}
	}
}
