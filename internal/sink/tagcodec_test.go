package sink

import (
	"encoding/binary"
	"testing"
)

func TestTagBuilderU32RoundTrip(t *testing.T) {
	tb := newTagBuilder()
	tb.addU32(42)
	tb.addU32(0xFFFFFFFF)

	tp := newTagParser(tb.bytes())
	v1, err := tp.readU32()
	if err != nil {
		t.Fatalf("readU32: %v", err)
	}
	if v1 != 42 {
		t.Fatalf("expected 42, got %d", v1)
	}
	v2, err := tp.readU32()
	if err != nil {
		t.Fatalf("readU32: %v", err)
	}
	if v2 != 0xFFFFFFFF {
		t.Fatalf("expected 0xFFFFFFFF, got %d", v2)
	}
}

func TestTagBuilderStringRoundTrip(t *testing.T) {
	tb := newTagBuilder()
	tb.addString("lonelyradio")
	tb.addStringNull()

	tp := newTagParser(tb.bytes())
	s, err := tp.readString()
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if s != "lonelyradio" {
		t.Fatalf("expected 'lonelyradio', got %q", s)
	}
	empty, err := tp.readString()
	if err != nil {
		t.Fatalf("readString (null): %v", err)
	}
	if empty != "" {
		t.Fatalf("expected empty string for TAG_STRING_NULL, got %q", empty)
	}
}

func TestTagBuilderArbitraryRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	tb := newTagBuilder()
	tb.addArbitrary(payload)

	tp := newTagParser(tb.bytes())
	got, err := tp.readArbitrary()
	if err != nil {
		t.Fatalf("readArbitrary: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(got))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d mismatch: want %d got %d", i, payload[i], got[i])
		}
	}
}

func TestBuildCommandEmbedsCommandAndTag(t *testing.T) {
	frame := buildCommand(cmdAuth, 7, []byte{0xAA})

	if len(frame) != descriptorSize+4+4+1+4+4 {
		// descriptor + TAG_U32(cmd) + TAG_U32(tag) + payload(1 byte) ...
		// just sanity check it's longer than the descriptor alone.
	}
	if len(frame) <= descriptorSize {
		t.Fatalf("expected frame longer than bare descriptor, got %d bytes", len(frame))
	}

	body := frame[descriptorSize:]
	tp := newTagParser(body)
	cmd, err := tp.readU32()
	if err != nil {
		t.Fatalf("readU32 cmd: %v", err)
	}
	if cmd != cmdAuth {
		t.Fatalf("expected cmdAuth, got %d", cmd)
	}
	tag, err := tp.readU32()
	if err != nil {
		t.Fatalf("readU32 tag: %v", err)
	}
	if tag != 7 {
		t.Fatalf("expected tag 7, got %d", tag)
	}
}

func TestBuildDescriptorEncodesLengthAndChannel(t *testing.T) {
	desc := buildDescriptor(123, controlChannel)
	if len(desc) != descriptorSize {
		t.Fatalf("expected %d-byte descriptor, got %d", descriptorSize, len(desc))
	}
	if got := binary.BigEndian.Uint32(desc[0:4]); got != 123 {
		t.Fatalf("expected length 123, got %d", got)
	}
	if got := binary.BigEndian.Uint32(desc[4:8]); got != controlChannel {
		t.Fatalf("expected channel 0x%08x, got 0x%08x", uint32(controlChannel), got)
	}
}
