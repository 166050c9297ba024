package playlist

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"os"

	"github.com/lonelyradio/lonelyradio/internal/logger"
)

// ScanDirectory walks root recursively, pruning hidden files/directories
// (dotfiles) and keeping only SupportedExtensions, exactly as spec §4.6
// describes the global track source. Per-file failures are logged and
// skipped rather than aborting the whole scan.
func ScanDirectory(root string) ([]*Track, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("playlist: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("playlist: %s is not a directory", root)
	}

	var paths []string
	err = filepath.Walk(root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			logger.Warn("scan: error accessing path", "path", path, "error", walkErr)
			return nil
		}
		base := fi.Name()
		if fi.IsDir() {
			if base != "." && strings.HasPrefix(base, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") {
			return nil
		}
		if !isSupportedExtension(filepath.Ext(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("playlist: walk %s: %w", root, err)
	}

	sort.Strings(paths)

	tracks := make([]*Track, 0, len(paths))
	for _, p := range paths {
		t, err := LoadTrack(p)
		if err != nil {
			logger.Warn("scan: failed to load track", "path", p, "error", err)
			continue
		}
		tracks = append(tracks, t)
	}

	logger.Info("directory scan complete", "root", root, "tracks", len(tracks))
	return tracks, nil
}
