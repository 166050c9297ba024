package playlist

import (
	"encoding/xml"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lonelyradio/lonelyradio/internal/logger"
)

// xspfPlaylist mirrors the minimal subset of the XSPF container format spec
// §4.6 calls "XSPF-like": a named list of file URLs. A generic encoding/xml
// struct is enough here; no XSPF-specific library is needed or present in
// the retrieval pack.
type xspfPlaylist struct {
	XMLName  xml.Name `xml:"playlist"`
	TrackList struct {
		Track []struct {
			Location string `xml:"location"`
		} `xml:"track"`
	} `xml:"trackList"`
}

// LoadXSPF parses an XSPF-like playlist file and resolves each listed file
// URL into a Track (loading its tags from disk).
func LoadXSPF(path string) ([]*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("playlist: read %s: %w", path, err)
	}

	var doc xspfPlaylist
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("playlist: parse xspf %s: %w", path, err)
	}

	base := filepath.Dir(path)
	tracks := make([]*Track, 0, len(doc.TrackList.Track))
	for _, entry := range doc.TrackList.Track {
		filePath, err := resolveLocation(entry.Location, base)
		if err != nil {
			logger.Warn("xspf: skipping unresolvable location", "location", entry.Location, "error", err)
			continue
		}
		t, err := LoadTrack(filePath)
		if err != nil {
			logger.Warn("xspf: skipping unreadable track", "path", filePath, "error", err)
			continue
		}
		tracks = append(tracks, t)
	}

	return tracks, nil
}

// resolveLocation turns an XSPF "location" URL (file:// or a bare relative
// path) into a filesystem path relative to the playlist's own directory.
func resolveLocation(location, base string) (string, error) {
	if u, err := url.Parse(location); err == nil && u.Scheme == "file" {
		return u.Path, nil
	}
	if filepath.IsAbs(location) {
		return location, nil
	}
	return filepath.Join(base, location), nil
}

// Store is the immutable, preloaded-at-startup snapshot of every track
// source spec §4.6 requires a connection to be able to resolve: the global
// directory scan, plus every named XSPF playlist. Reads are lock-free
// slice/map lookups against data that never mutates after Load.
type Store struct {
	global    []*Track
	playlists map[string][]*Track
	names     []string
}

// Load scans root for the global track list and parses every *.xspf file
// directly under playlistsDir as a named playlist (name = filename without
// extension). Either directory may be empty/unset.
func Load(root, playlistsDir string) (*Store, error) {
	s := &Store{playlists: make(map[string][]*Track)}

	if root != "" {
		tracks, err := ScanDirectory(root)
		if err != nil {
			return nil, err
		}
		s.global = tracks
	}

	if playlistsDir != "" {
		entries, err := os.ReadDir(playlistsDir)
		if err != nil {
			return nil, fmt.Errorf("playlist: read playlists dir %s: %w", playlistsDir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xspf") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			tracks, err := LoadXSPF(filepath.Join(playlistsDir, e.Name()))
			if err != nil {
				return nil, err
			}
			s.playlists[name] = tracks
			s.names = append(s.names, name)
		}
	}

	return s, nil
}

// Global returns the global track list (all files under root).
func (s *Store) Global() []*Track { return s.global }

// Names lists every named playlist, for RequestResult::Playlist.
func (s *Store) Names() []string { return s.names }

// Resolve returns the named playlist's tracks, or false if no such
// playlist exists (spec §4.2: PlayPlaylist with unknown name -> NoSuchPlaylist).
func (s *Store) Resolve(name string) ([]*Track, bool) {
	tracks, ok := s.playlists[name]
	return tracks, ok
}

// Pick selects a track uniformly at random with replacement, spec §4.6's
// "pick next track" rule.
func Pick(tracks []*Track) (*Track, bool) {
	if len(tracks) == 0 {
		return nil, false
	}
	return tracks[rand.Intn(len(tracks))], true
}
