package wire

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestServerCapabilitiesRoundTrip(t *testing.T) {
	msg := ServerCapabilities{Encoders: []Encoder{Pcm16, PcmFloat, Flac, Sea}}
	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeServerCapabilities(msgpack.NewDecoder(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Encoders) != 4 || got.Encoders[2] != Flac {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestRequestRoundTripPlayPlaylist(t *testing.T) {
	msg := Request{
		Kind:         RequestPlayPlaylist,
		Settings:     Settings{Encoder: Vorbis, Cover: 256},
		PlaylistName: "late-night",
	}
	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRequest(msgpack.NewDecoder(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != RequestPlayPlaylist || got.PlaylistName != "late-night" || got.Settings.Cover != 256 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestRequestResultPlaylist(t *testing.T) {
	msg := RequestResult{Kind: ResultPlaylist, Playlists: []string{"a", "b", "c"}}
	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRequestResult(msgpack.NewDecoder(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Playlists) != 3 || got.Playlists[1] != "b" {
		t.Fatalf("unexpected playlists: %+v", got)
	}
}

func TestPlayMessageTrackAndFragment(t *testing.T) {
	track := TrackMetadata{
		TrackLengthSecs: 187,
		TrackLengthFrac: 0.5,
		Channels:        2,
		SampleRate:      48000,
		Encoder:         Flac,
		Title:           "Voyager",
		Album:           "Outbound",
		Artist:          "Nobody",
		Cover:           []byte{0xFF, 0xD8, 0xFF},
		ID:              3,
	}
	b, err := Encode(NewTrackMessage(track))
	if err != nil {
		t.Fatalf("encode track: %v", err)
	}
	got, err := DecodePlayMessage(msgpack.NewDecoder(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("decode track: %v", err)
	}
	if got.Kind != PlayMessageT || got.Track == nil || got.Track.Title != "Voyager" || got.Track.ID != 3 {
		t.Fatalf("unexpected track round trip: %+v", got)
	}

	frag := FragmentMetadata{Length: 4096, MagicCookie: []byte{1, 2, 3}}
	b2, err := Encode(NewFragmentMessage(frag))
	if err != nil {
		t.Fatalf("encode fragment: %v", err)
	}
	got2, err := DecodePlayMessage(msgpack.NewDecoder(bytes.NewReader(b2)))
	if err != nil {
		t.Fatalf("decode fragment: %v", err)
	}
	if got2.Kind != PlayMessageF || got2.Fragment == nil || got2.Fragment.Length != 4096 {
		t.Fatalf("unexpected fragment round trip: %+v", got2)
	}
}

// TestPositionalArrayTolerance verifies the client-side decode path accepts
// array-encoded objects (§4.1's forward-compatibility clause), not just the
// named-field maps the server actually emits.
func TestPositionalArrayTolerance(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeArrayLen(len(fragmentMetaOrder)); err != nil {
		t.Fatalf("encode array len: %v", err)
	}
	if err := enc.EncodeUint64(9000); err != nil {
		t.Fatalf("encode length: %v", err)
	}
	if err := enc.EncodeNil(); err != nil {
		t.Fatalf("encode magic cookie: %v", err)
	}

	got, err := DecodePlayMessage(msgpack.NewDecoder(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("decode positional fragment: %v", err)
	}
	if got.Kind != PlayMessageF || got.Fragment.Length != 9000 {
		t.Fatalf("unexpected positional decode: %+v", got)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := DecodeRequest(msgpack.NewDecoder(bytes.NewReader([]byte{0xc1}))); err == nil {
		t.Fatalf("expected malformed frame error")
	}
}

func TestReaderStreamsFragmentPayloadSeparately(t *testing.T) {
	var buf bytes.Buffer
	frag := NewFragmentMessage(FragmentMetadata{Length: 4})
	b, _ := Encode(frag)
	buf.Write(b)
	buf.Write([]byte{1, 2, 3, 4})

	r := NewReader(&buf)
	msg, err := r.ReadPlayMessage()
	if err != nil {
		t.Fatalf("read play message: %v", err)
	}
	payload, err := r.ReadFragment(msg.Fragment.Length)
	if err != nil {
		t.Fatalf("read fragment: %v", err)
	}
	if !bytes.Equal(payload, []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected payload: %v", payload)
	}
}
