// Package config implements server and client configuration: stdlib flag
// parsing layered over env-var-with-default lookups, merging the teacher's
// cmd/rtmp-server/flags.go shape (flag.FlagSet, a repeated-flag slice type,
// post-parse validation) with denpa-radio's config.Config env-var-default
// pattern.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// stringSliceFlag implements flag.Value for a flag repeatable on the command
// line, exactly as cmd/rtmp-server/flags.go's stringSliceFlag does.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

var encoderNames = map[string]wire.Encoder{
	"pcm16":     wire.Pcm16,
	"pcm_float": wire.PcmFloat,
	"flac":      wire.Flac,
	"alac":      wire.Alac,
	"wavpack":   wire.WavPack,
	"opus":      wire.Opus,
	"aac":       wire.Aac,
	"vorbis":    wire.Vorbis,
	"sea":       wire.Sea,
}

func parseEncoderName(name string) (wire.Encoder, error) {
	e, ok := encoderNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown encoder %q", name)
	}
	return e, nil
}

func parseEncoderNames(names []string) ([]wire.Encoder, error) {
	out := make([]wire.Encoder, 0, len(names))
	for _, n := range names {
		e, err := parseEncoderName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// defaultServerEncoders matches the encoder pipeline's actually-implemented
// emit side (spec §4.3: Vorbis/Opus/Aac/WavPack are decode-only or reserved).
var defaultServerEncoders = []string{"pcm16", "pcm_float", "flac", "alac", "sea"}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ServerConfig is the merged set of flags/env-vars the server binary needs.
type ServerConfig struct {
	ListenAddr    string
	MusicDir      string
	PlaylistsDir  string
	MaxSampleRate uint32
	ArtworkCap    int
	LogLevel      string
	Encoders      []wire.Encoder
}

// ParseServerFlags parses args (normally os.Args[1:]), with every flag
// defaulting to its LONELYRADIO_* environment variable if set.
func ParseServerFlags(args []string) (*ServerConfig, error) {
	fs := flag.NewFlagSet("lonelyradio-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &ServerConfig{}
	var encoders stringSliceFlag
	var maxSampleRate uint

	fs.StringVar(&cfg.ListenAddr, "listen", getEnv("LONELYRADIO_LISTEN", ":7373"), "TCP listen address")
	fs.StringVar(&cfg.MusicDir, "music-dir", getEnv("LONELYRADIO_MUSIC_DIR", "./music"), "directory of audio files served as the global track list")
	fs.StringVar(&cfg.PlaylistsDir, "playlists-dir", getEnv("LONELYRADIO_PLAYLISTS_DIR", ""), "directory of *.xspf named playlists (optional)")
	fs.UintVar(&maxSampleRate, "max-sample-rate", uint(getEnvAsInt("LONELYRADIO_MAX_SAMPLE_RATE", 48000)), "maximum output sample rate; faster sources are downsampled")
	fs.IntVar(&cfg.ArtworkCap, "artwork-cap", getEnvAsInt("LONELYRADIO_ARTWORK_CAP", 1024), "maximum cover art dimension in pixels")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LONELYRADIO_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	fs.Var(&encoders, "encoder", "advertised encoder tag (repeatable); defaults to pcm16,pcm_float,flac,alac,sea")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.MaxSampleRate = uint32(maxSampleRate)

	if len(encoders) == 0 {
		if env := getEnv("LONELYRADIO_ENCODERS", ""); env != "" {
			encoders = strings.Split(env, ",")
		} else {
			encoders = append(stringSliceFlag{}, defaultServerEncoders...)
		}
	}
	parsed, err := parseEncoderNames(encoders)
	if err != nil {
		return nil, err
	}
	cfg.Encoders = parsed

	if cfg.MusicDir == "" {
		return nil, errors.New("music-dir must not be empty")
	}
	if !validLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q", cfg.LogLevel)
	}
	if cfg.MaxSampleRate == 0 {
		return nil, errors.New("max-sample-rate must be positive")
	}

	return cfg, nil
}

// ClientConfig is the merged set of flags/env-vars the client binary needs.
type ClientConfig struct {
	ServerAddr    string
	Encoder       wire.Encoder
	Cover         int32
	InitialVolume uint8
	LogLevel      string
	Playlist      string // empty selects the global track list
	ListPlaylists bool
}

// ParseClientFlags parses args (normally os.Args[1:]).
func ParseClientFlags(args []string) (*ClientConfig, error) {
	fs := flag.NewFlagSet("lonelyradio-client", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &ClientConfig{}
	var encoderName string
	var cover int
	var volume uint

	fs.StringVar(&cfg.ServerAddr, "server", getEnv("LONELYRADIO_SERVER", "localhost:7373"), "server address host:port")
	fs.StringVar(&encoderName, "encoder", getEnv("LONELYRADIO_ENCODER", "flac"), "preferred encoder tag; falls back to pcm16 if unsupported by the server")
	fs.IntVar(&cover, "cover", getEnvAsInt("LONELYRADIO_COVER", -1), "cover art policy: -1 none, 0 as-is, N resize to NxN")
	fs.UintVar(&volume, "volume", uint(getEnvAsInt("LONELYRADIO_VOLUME", 255)), "initial volume 0-255")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LONELYRADIO_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	fs.StringVar(&cfg.Playlist, "playlist", getEnv("LONELYRADIO_PLAYLIST", ""), "named playlist to play; empty plays the global track list")
	fs.BoolVar(&cfg.ListPlaylists, "list-playlists", false, "list available named playlists and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	enc, err := parseEncoderName(encoderName)
	if err != nil {
		return nil, err
	}
	cfg.Encoder = enc

	if cover < -1 {
		return nil, fmt.Errorf("cover must be >= -1, got %d", cover)
	}
	cfg.Cover = int32(cover)

	if volume > 255 {
		return nil, fmt.Errorf("volume must be 0-255, got %d", volume)
	}
	cfg.InitialVolume = uint8(volume)

	if !validLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q", cfg.LogLevel)
	}

	return cfg, nil
}
