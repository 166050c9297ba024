// Package playlist implements the out-of-scope-but-wired collaborator
// dispatcher needs to resolve a track source (spec §4.6): directory
// scanning, tag extraction, and named-playlist parsing. Decoding itself
// happens in internal/audio.
package playlist

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/lonelyradio/lonelyradio/internal/logger"
)

// SupportedExtensions is the fixed allowlist spec §4.6 requires when
// resolving the global track source.
var SupportedExtensions = []string{".mp3", ".wav", ".flac", ".ogg"}

func isSupportedExtension(ext string) bool {
	lower := strings.ToLower(ext)
	for _, e := range SupportedExtensions {
		if lower == e {
			return true
		}
	}
	return false
}

// Track is one playable file plus the tag metadata the encoder pipeline
// needs for TrackMetadata. Unlike the teacher's Track, it carries no
// numeric ID of its own: dispatcher mints a fresh one per play (spec §3:
// "id changes between consecutive TrackMetadata").
type Track struct {
	Path     string
	Title    string
	Artist   string
	Album    string
	Cover    []byte
	Checksum string
}

// LoadTrack reads tag metadata and computes a content checksum for the
// audio file at path. Falls back to the filename when tags are missing or
// unreadable, matching denpa-radio's track.go behavior.
func LoadTrack(path string) (*Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	checksum, err := computeChecksum(abs)
	if err != nil {
		return nil, fmt.Errorf("playlist: checksum %s: %w", abs, err)
	}

	filename := filepath.Base(abs)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))

	t := &Track{Path: abs, Title: title, Checksum: checksum}
	extractMetadata(t, abs)
	return t, nil
}

func computeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func extractMetadata(t *Track, path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("could not open file for metadata", "path", path, "error", err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		logger.Debug("could not read tags", "path", path, "error", err)
		return
	}

	if m.Title() != "" {
		t.Title = m.Title()
	}
	if m.Artist() != "" {
		t.Artist = m.Artist()
	}
	if m.Album() != "" {
		t.Album = m.Album()
	}
	if pic := m.Picture(); pic != nil {
		t.Cover = pic.Data
	}
}
