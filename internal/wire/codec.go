package wire

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
)

// Encode serializes msg as a named-field map, matching the server side of
// spec §4.1 ("server encodes using named-field maps").
func Encode(msg any) ([]byte, error) {
	m, err := toMap(msg)
	if err != nil {
		return nil, lrerrors.NewFrameError("encode", err)
	}
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, lrerrors.NewFrameError("encode", err)
	}
	return b, nil
}

// WriteMessage encodes msg and writes it to w.
func WriteMessage(w io.Writer, msg any) error {
	b, err := Encode(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return lrerrors.NewFrameError("write", err)
	}
	return nil
}

// The *Order slices list, for each message type, the positional fallback order used
// when decoding an array-encoded object (client-side tolerance per §4.1).
var (
	serverCapsOrder     = []string{"encoders"}
	requestOrder        = []string{"kind", "encoder", "cover", "playlist"}
	requestResultOrder  = []string{"kind", "playlists", "error"}
	trackMetadataOrder  = []string{"tls", "tlf", "c", "sr", "e", "mt", "mal", "mar", "co", "id"}
	fragmentMetaOrder   = []string{"le", "mc"}
)

// decodeFields reads exactly one top-level msgpack object from dec and
// normalizes it to a string-keyed map, accepting either a named-field map or
// a positional array (decoded against order) per §4.1's client tolerance
// requirement.
func decodeFields(dec *msgpack.Decoder, order []string) (map[string]any, error) {
	// Loose decoding yields int64/uint64/float64 for every number, nested
	// ones included, which are the types the as* helpers below accept.
	dec.UseLooseInterfaceDecoding(true)
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, lrerrors.NewFrameError("decode", err)
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case []any:
		out := make(map[string]any, len(t))
		for i, val := range t {
			if i >= len(order) {
				break
			}
			out[order[i]] = val
		}
		return out, nil
	case nil:
		return nil, lrerrors.NewFrameError("decode", fmt.Errorf("unexpected nil object"))
	default:
		return nil, lrerrors.NewFrameError("decode", fmt.Errorf("unexpected top-level shape %T", v))
	}
}

func toMap(msg any) (map[string]any, error) {
	switch m := msg.(type) {
	case ServerCapabilities:
		// []any rather than []uint8, which msgpack would write as a bin blob
		// instead of an array.
		tags := make([]any, len(m.Encoders))
		for i, e := range m.Encoders {
			tags[i] = uint8(e)
		}
		return map[string]any{"encoders": tags}, nil
	case Request:
		return map[string]any{
			"kind":     uint8(m.Kind),
			"encoder":  uint8(m.Settings.Encoder),
			"cover":    m.Settings.Cover,
			"playlist": m.PlaylistName,
		}, nil
	case RequestResult:
		return map[string]any{
			"kind":      uint8(m.Kind),
			"playlists": m.Playlists,
			"error":     uint8(m.ErrorKind),
		}, nil
	case TrackMetadata:
		return map[string]any{
			"tls": m.TrackLengthSecs,
			"tlf": m.TrackLengthFrac,
			"c":   m.Channels,
			"sr":  m.SampleRate,
			"e":   uint8(m.Encoder),
			"mt":  m.Title,
			"mal": m.Album,
			"mar": m.Artist,
			"co":  m.Cover,
			"id":  m.ID,
		}, nil
	case FragmentMetadata:
		return map[string]any{"le": m.Length, "mc": m.MagicCookie}, nil
	case PlayMessage:
		switch m.Kind {
		case PlayMessageT:
			if m.Track == nil {
				return nil, fmt.Errorf("PlayMessage T with nil Track")
			}
			return toMap(*m.Track)
		case PlayMessageF:
			if m.Fragment == nil {
				return nil, fmt.Errorf("PlayMessage F with nil Fragment")
			}
			return toMap(*m.Fragment)
		default:
			return nil, fmt.Errorf("unknown PlayMessage kind %d", m.Kind)
		}
	default:
		return nil, fmt.Errorf("wire: unsupported message type %T", msg)
	}
}

func DecodeServerCapabilities(dec *msgpack.Decoder) (ServerCapabilities, error) {
	f, err := decodeFields(dec, serverCapsOrder)
	if err != nil {
		return ServerCapabilities{}, err
	}
	raw, err := asSlice(f["encoders"])
	if err != nil {
		return ServerCapabilities{}, lrerrors.NewFrameError("decode.server_capabilities", err)
	}
	encoders := make([]Encoder, 0, len(raw))
	for _, v := range raw {
		u, err := asUint(v)
		if err != nil {
			return ServerCapabilities{}, lrerrors.NewFrameError("decode.server_capabilities", err)
		}
		encoders = append(encoders, Encoder(u))
	}
	return ServerCapabilities{Encoders: encoders}, nil
}

func DecodeRequest(dec *msgpack.Decoder) (Request, error) {
	f, err := decodeFields(dec, requestOrder)
	if err != nil {
		return Request{}, err
	}
	kind, err := asUint(f["kind"])
	if err != nil {
		return Request{}, lrerrors.NewFrameError("decode.request", err)
	}
	enc, err := asUint(f["encoder"])
	if err != nil {
		return Request{}, lrerrors.NewFrameError("decode.request", err)
	}
	cover, err := asInt(f["cover"])
	if err != nil {
		return Request{}, lrerrors.NewFrameError("decode.request", err)
	}
	name, _ := f["playlist"].(string)
	return Request{
		Kind:         RequestKind(kind),
		Settings:     Settings{Encoder: Encoder(enc), Cover: int32(cover)},
		PlaylistName: name,
	}, nil
}

func DecodeRequestResult(dec *msgpack.Decoder) (RequestResult, error) {
	f, err := decodeFields(dec, requestResultOrder)
	if err != nil {
		return RequestResult{}, err
	}
	kind, err := asUint(f["kind"])
	if err != nil {
		return RequestResult{}, lrerrors.NewFrameError("decode.request_result", err)
	}
	var playlists []string
	if raw, ok := f["playlists"]; ok && raw != nil {
		slice, err := asSlice(raw)
		if err != nil {
			return RequestResult{}, lrerrors.NewFrameError("decode.request_result", err)
		}
		for _, v := range slice {
			s, _ := v.(string)
			playlists = append(playlists, s)
		}
	}
	errKind, _ := asUint(f["error"])
	return RequestResult{
		Kind:      RequestResultKind(kind),
		Playlists: playlists,
		ErrorKind: RequestErrorKind(errKind),
	}, nil
}

// DecodePlayMessage decodes one PlayMessage. Because T and F are
// distinguished structurally rather than by an explicit kind byte (§6 gives
// only the TrackMetadata/FragmentMetadata field tags), we look at which
// field set is present: "tls" marks a T, "le" marks an F.
func DecodePlayMessage(dec *msgpack.Decoder) (PlayMessage, error) {
	dec.UseLooseInterfaceDecoding(true)
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return PlayMessage{}, lrerrors.NewFrameError("decode.play_message", err)
	}
	var f map[string]any
	switch t := v.(type) {
	case map[string]any:
		f = t
	case []any:
		// Positional arrays are ambiguous between T and F shapes by length
		// alone only if lengths collide; TrackMetadata has 10 fields,
		// FragmentMetadata has 2, so length disambiguates.
		if len(t) == len(trackMetadataOrder) {
			f = zip(trackMetadataOrder, t)
		} else {
			f = zip(fragmentMetaOrder, t)
		}
	default:
		return PlayMessage{}, lrerrors.NewFrameError("decode.play_message", fmt.Errorf("unexpected shape %T", v))
	}

	if _, ok := f["tls"]; ok {
		tm, err := trackMetadataFromFields(f)
		if err != nil {
			return PlayMessage{}, err
		}
		return NewTrackMessage(tm), nil
	}
	if _, ok := f["le"]; ok {
		fm, err := fragmentMetadataFromFields(f)
		if err != nil {
			return PlayMessage{}, err
		}
		return NewFragmentMessage(fm), nil
	}
	return PlayMessage{}, lrerrors.NewFrameError("decode.play_message", fmt.Errorf("unrecognized PlayMessage shape"))
}

func trackMetadataFromFields(f map[string]any) (TrackMetadata, error) {
	secs, err := asUint(f["tls"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	frac, err := asFloat32(f["tlf"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	channels, err := asUint(f["c"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	rate, err := asUint(f["sr"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	enc, err := asUint(f["e"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	title, _ := f["mt"].(string)
	album, _ := f["mal"].(string)
	artist, _ := f["mar"].(string)
	cover, err := asBytes(f["co"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	id, err := asUint(f["id"])
	if err != nil {
		return TrackMetadata{}, lrerrors.NewFrameError("decode.track_metadata", err)
	}
	return TrackMetadata{
		TrackLengthSecs: secs,
		TrackLengthFrac: frac,
		Channels:        uint16(channels),
		SampleRate:      uint32(rate),
		Encoder:         Encoder(enc),
		Title:           title,
		Album:           album,
		Artist:          artist,
		Cover:           cover,
		ID:              uint8(id),
	}, nil
}

func fragmentMetadataFromFields(f map[string]any) (FragmentMetadata, error) {
	length, err := asUint(f["le"])
	if err != nil {
		return FragmentMetadata{}, lrerrors.NewFrameError("decode.fragment_metadata", err)
	}
	cookie, err := asBytes(f["mc"])
	if err != nil {
		return FragmentMetadata{}, lrerrors.NewFrameError("decode.fragment_metadata", err)
	}
	return FragmentMetadata{Length: length, MagicCookie: cookie}, nil
}

func zip(order []string, values []any) map[string]any {
	out := make(map[string]any, len(order))
	for i, name := range order {
		if i >= len(values) {
			break
		}
		out[name] = values[i]
	}
	return out
}

func asSlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	return s, nil
}

func asBytes(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("expected bytes, got %T", v)
	}
}

func asUint(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("expected unsigned integer, got negative %d", n)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("expected unsigned integer, got negative %d", n)
		}
		return uint64(n), nil
	case float64:
		return uint64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asFloat32(v any) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int64:
		return float32(n), nil
	case uint64:
		return float32(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected float, got %T", v)
	}
}
