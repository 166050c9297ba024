package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding for embedded covers that aren't JPEG

	"github.com/nfnt/resize"
)

// prepareCover implements spec §4.3's cover handling:
//   cover == -1: caller omits the field entirely (checked before calling this).
//   cover == 0:  send the original bytes unresized.
//   cover >  0:  resize so the max dimension is min(artworkCap, cover),
//                re-encode to JPEG.
// A track without an embedded picture (empty original) always yields nil.
func prepareCover(original []byte, cover int32, artworkCap int) ([]byte, error) {
	if len(original) == 0 {
		return nil, nil
	}
	if cover == 0 {
		return original, nil
	}

	target := int(cover)
	if artworkCap > 0 && artworkCap < target {
		target = artworkCap
	}

	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	var newW, newH uint
	if w >= h {
		newW = uint(target)
		newH = uint(target * h / max(w, 1))
	} else {
		newH = uint(target)
		newW = uint(target * w / max(h, 1))
	}

	resized := resize.Resize(newW, newH, img, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return out.Bytes(), nil
}
