// Package dispatcher implements the server's per-connection task (spec
// §4.6): run the handshake, validate the request, resolve a track source,
// and drive the encoder pipeline in a loop until the client disconnects.
// Grounded on internal/rtmp/server/server.go's accept-loop-plus-per-connection
// shape and internal/rtmp/server/play_handler.go's single-subscriber playback
// loop, collapsed to one function per connection since this protocol has no
// publish/subscribe fan-out that needs a Registry.
package dispatcher

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/lonelyradio/lonelyradio/internal/audio"
	"github.com/lonelyradio/lonelyradio/internal/codec/encoder"
	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
	"github.com/lonelyradio/lonelyradio/internal/logger"
	"github.com/lonelyradio/lonelyradio/internal/playlist"
	"github.com/lonelyradio/lonelyradio/internal/protocol"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// Config carries everything a Dispatcher needs to serve connections: the
// capabilities advertised during handshake, the encoder pipeline's limits,
// and the preloaded track snapshot.
type Config struct {
	Capabilities wire.ServerCapabilities
	Encoder      encoder.Config
	Store        *playlist.Store
}

// Dispatcher serves accepted connections per spec §4.6. It holds no
// per-connection state; every Serve call is independent, sharing only the
// immutable playlist snapshot (spec: "tasks are fully independent and share
// only immutable playlist snapshots").
type Dispatcher struct {
	cfg Config
}

func New(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Serve drives one accepted connection to completion: handshake, request
// validation, then (for Play/PlayPlaylist) an encode loop that runs until
// disconnect or a transport write failure. It closes conn before returning
// and never panics on a misbehaving peer.
func (d *Dispatcher) Serve(conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr().String()
	log := logger.WithConn(logger.Logger(), peer, peer)

	sc := protocol.NewServerConn(conn, d.cfg.Capabilities)
	req, err := sc.Negotiate()
	if err != nil {
		if errors.Is(err, protocol.ErrMagicMismatch) {
			return
		}
		log.Warn("handshake failed", "error", err)
		return
	}

	switch req.Kind {
	case wire.RequestListPlaylist:
		if err := sc.RespondPlaylist(d.cfg.Store.Names()); err != nil {
			log.Warn("write playlist listing failed", "error", err)
		}

	case wire.RequestPlay:
		d.servePlaying(sc, log, req.Settings, d.cfg.Store.Global())

	case wire.RequestPlayPlaylist:
		tracks, ok := d.cfg.Store.Resolve(req.PlaylistName)
		if !ok {
			if err := sc.RespondError(wire.ErrNoSuchPlaylist); err != nil {
				log.Warn("write no_such_playlist failed", "error", err)
			}
			return
		}
		d.servePlaying(sc, log, req.Settings, tracks)

	default:
		log.Warn("unknown request kind", "kind", req.Kind)
	}
}

// servePlaying implements spec §4.6 steps 2-4 once a track source has been
// resolved: validate, respond Ok, then pick-and-encode in a loop.
func (d *Dispatcher) servePlaying(sc *protocol.ServerConn, log *slog.Logger, settings wire.Settings, tracks []*playlist.Track) {
	if err := protocol.ValidateSettings(d.cfg.Capabilities, settings); err != nil {
		var reqErr *lrerrors.RequestError
		if errors.As(err, &reqErr) {
			if err := sc.RespondError(protocol.RequestErrorKindFromDomain(reqErr.Kind)); err != nil {
				log.Warn("write request error failed", "error", err)
			}
			return
		}
		log.Warn("settings validation failed", "error", err)
		return
	}

	if err := sc.RespondOk(); err != nil {
		log.Warn("write ok failed", "error", err)
		return
	}

	w := &taggedWriter{sc: sc}
	var nextID uint8

	for {
		track, ok := playlist.Pick(tracks)
		if !ok {
			log.Warn("no tracks available to play")
			return
		}

		err := d.playOne(w, log, settings, track, nextID)
		nextID++
		if err == nil {
			continue
		}

		var te *transportError
		if errors.As(err, &te) {
			return
		}
		log.Warn("track skipped", "path", track.Path, "error", err)
	}
}

// playOne opens, tags, and streams exactly one track (spec §4.3 run via
// internal/codec/encoder). Per spec §4.3's failure policy, any error here
// other than a transport write failure means "skip this track" to the
// caller.
func (d *Dispatcher) playOne(w *taggedWriter, log *slog.Logger, settings wire.Settings, track *playlist.Track, id uint8) error {
	src, err := audio.OpenFile(track.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", track.Path, err)
	}
	defer src.Close()

	trackLog := logger.WithTrack(log, id, track.Title)
	trackLog.Info("playing track", "path", track.Path)

	et := encoder.Track{
		Source: src,
		Tags: audio.Tags{
			Title:  track.Title,
			Album:  track.Album,
			Artist: track.Artist,
			Cover:  track.Cover,
		},
		ID: id,
	}

	if err := encoder.EncodeTrack(w, et, settings, d.cfg.Encoder); err != nil {
		var te *transportError
		if errors.As(err, &te) {
			return err
		}
		return fmt.Errorf("encode %s: %w", track.Path, err)
	}
	return nil
}

// transportError distinguishes a network write failure (fatal to the
// connection) from a decode/encode failure (skip to the next track).
// encoder.EncodeTrack returns Writer errors verbatim, so taggedWriter tags
// them here rather than the dispatcher trying to sniff net.Error out of an
// arbitrary wrapped error later.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// taggedWriter adapts protocol.ServerConn to encoder.Writer, tagging any
// error as a transportError.
type taggedWriter struct{ sc *protocol.ServerConn }

func (w *taggedWriter) WritePlayMessage(m wire.PlayMessage) error {
	if err := w.sc.WritePlayMessage(m); err != nil {
		return &transportError{err: err}
	}
	return nil
}

func (w *taggedWriter) WriteFragment(b []byte) error {
	if err := w.sc.WriteFragment(b); err != nil {
		return &transportError{err: err}
	}
	return nil
}
