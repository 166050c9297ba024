// Package wire implements the frame codec: the self-describing message
// objects exchanged between server and client, and their MessagePack-based
// encoding (spec §4.1). It is the lowest-level component; protocol, encoder,
// decoder and dispatcher all build messages defined here.
package wire

import "fmt"

// Encoder is the tagged enum of audio codecs negotiated between client and
// server. Tag values are part of the wire contract and must never be
// renumbered.
type Encoder uint8

const (
	Pcm16 Encoder = iota
	PcmFloat
	Flac
	Alac
	WavPack
	Opus
	Aac
	Vorbis
	Sea
)

func (e Encoder) String() string {
	switch e {
	case Pcm16:
		return "pcm16"
	case PcmFloat:
		return "pcm_float"
	case Flac:
		return "flac"
	case Alac:
		return "alac"
	case WavPack:
		return "wavpack"
	case Opus:
		return "opus"
	case Aac:
		return "aac"
	case Vorbis:
		return "vorbis"
	case Sea:
		return "sea"
	default:
		return fmt.Sprintf("encoder(%d)", uint8(e))
	}
}

// EncoderSet is an unordered set of supported Encoder tags, as advertised by
// ServerCapabilities.
type EncoderSet map[Encoder]struct{}

func NewEncoderSet(encoders ...Encoder) EncoderSet {
	s := make(EncoderSet, len(encoders))
	for _, e := range encoders {
		s[e] = struct{}{}
	}
	return s
}

func (s EncoderSet) Contains(e Encoder) bool {
	_, ok := s[e]
	return ok
}

func (s EncoderSet) Slice() []Encoder {
	out := make([]Encoder, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	return out
}

// Settings carries the client's requested codec and artwork policy.
// Cover: -1 suppresses artwork, 0 sends the original size, N>0 resizes to
// NxN. Values below -1 are invalid (RequestError.WrongCoverSize).
type Settings struct {
	Encoder Encoder
	Cover   int32
}

// ServerCapabilities is written by the server immediately after the magic
// handshake.
type ServerCapabilities struct {
	Encoders []Encoder
}

// RequestKind discriminates the Request tagged union.
type RequestKind uint8

const (
	RequestPlay RequestKind = iota
	RequestListPlaylist
	RequestPlayPlaylist
)

// Request is the client's post-handshake tagged union:
// Play(Settings) | ListPlaylist | PlayPlaylist(name, Settings).
type Request struct {
	Kind         RequestKind
	Settings     Settings
	PlaylistName string // only meaningful for RequestPlayPlaylist
}

// RequestResultKind discriminates the RequestResult tagged union.
type RequestResultKind uint8

const (
	ResultOk RequestResultKind = iota
	ResultPlaylist
	ResultError
)

// RequestErrorKind mirrors internal/errors.RequestErrorKind's wire tag.
type RequestErrorKind uint8

const (
	ErrNoSuchPlaylist RequestErrorKind = iota
	ErrWrongCoverSize
	ErrUnsupportedEncoder
)

// RequestResult is the server's reply to a Request.
type RequestResult struct {
	Kind      RequestResultKind
	Playlists []string         // only meaningful for ResultPlaylist
	ErrorKind RequestErrorKind // only meaningful for ResultError
}

// TrackMetadata begins a track. Its wire field tags (§6) are: tls, tlf, c,
// sr, e, mt, mal, mar, co, id.
type TrackMetadata struct {
	TrackLengthSecs uint64
	TrackLengthFrac float32
	Channels        uint16
	SampleRate      uint32
	Encoder         Encoder
	Title           string
	Album           string
	Artist          string
	Cover           []byte // nil/empty means no artwork
	ID              uint8
}

// FragmentMetadata precedes exactly `Length` bytes of encoded payload on the
// wire. Its field tags are: le, mc.
type FragmentMetadata struct {
	Length      uint64
	MagicCookie []byte // non-empty only on the first fragment of an Alac track
}

// PlayMessageKind discriminates the PlayMessage tagged union.
type PlayMessageKind uint8

const (
	PlayMessageT PlayMessageKind = iota
	PlayMessageF
)

// PlayMessage is the streaming-phase tagged union: T(TrackMetadata) |
// F(FragmentMetadata). Exactly one of Track/Fragment is populated,
// determined by Kind.
type PlayMessage struct {
	Kind     PlayMessageKind
	Track    *TrackMetadata
	Fragment *FragmentMetadata
}

func NewTrackMessage(t TrackMetadata) PlayMessage {
	return PlayMessage{Kind: PlayMessageT, Track: &t}
}

func NewFragmentMessage(f FragmentMetadata) PlayMessage {
	return PlayMessage{Kind: PlayMessageF, Fragment: &f}
}

// Magic is the 8-byte ASCII handshake constant, sent verbatim by the client
// and validated verbatim by the server.
const Magic = "lonelyra"
