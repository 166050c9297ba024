package decoder

import (
	"bytes"
	"errors"
	"io"

	"github.com/jfreymuth/oggvorbis"

	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
)

// decodeVorbisFragment decodes one fragment's bytes as a self-contained
// Ogg-Vorbis substream (spec §4.4: "each F's buffer is a self-contained
// decodable unit").
func decodeVorbisFragment(payload []byte) ([]float32, error) {
	r, err := oggvorbis.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, lrerrors.NewDecodeFailureError("vorbis", err)
	}

	var out []float32
	buf := make([]float32, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return out, lrerrors.NewDecodeFailureError("vorbis", err)
		}
	}
	return out, nil
}
