// Package radioclient is the client-side entry point of spec §4.7: it wires
// internal/protocol's client half, internal/pacing's streaming core, and
// internal/control's shared surface into the single operation a client
// binary needs, run(server, settings, playlist). Grounded on the overall
// shape of internal/rtmp/client/client.go (dial, drive the protocol to
// completion, expose a small surface for a CLI), though the two protocols'
// message models differ enough that little of that file's internals carry
// over directly.
package radioclient

import (
	"fmt"

	"github.com/lonelyradio/lonelyradio/internal/control"
	"github.com/lonelyradio/lonelyradio/internal/logger"
	"github.com/lonelyradio/lonelyradio/internal/pacing"
	"github.com/lonelyradio/lonelyradio/internal/protocol"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// Settings is what the caller wants out of one Run: the preferred encoder,
// cover art policy, and an optional named playlist (empty plays the
// server's global track list).
type Settings struct {
	Encoder      wire.Encoder
	Cover        int32
	PlaylistName string
}

// Client wraps the shared control surface spec §4.7 describes. Surface is
// exported so a CLI (or any other caller) can drive toggle/stop/volume/
// metadata/state directly without this package re-exposing each one.
type Client struct {
	Surface *control.Surface
}

func New() *Client {
	return &Client{Surface: control.New()}
}

// ListPlaylists opens a short-lived connection, asks for the named
// playlist listing, and returns it without entering Streaming.
func ListPlaylists(server string) ([]string, error) {
	cc, err := protocol.Dial(server)
	if err != nil {
		return nil, err
	}
	defer cc.Close()

	if _, err := cc.ReadCapabilities(); err != nil {
		return nil, err
	}
	if err := cc.SendRequest(wire.Request{Kind: wire.RequestListPlaylist}); err != nil {
		return nil, err
	}
	res, err := cc.ReadResult()
	if err != nil {
		return nil, err
	}
	if res.Kind != wire.ResultPlaylist {
		return nil, fmt.Errorf("radioclient: unexpected result kind %v for playlist listing", res.Kind)
	}
	return res.Playlists, nil
}

// Run opens a connection and runs spec §4.4-§4.5 to completion: negotiate,
// request, stream until the server disconnects or the surface is Stop()-ed
// from another goroutine. Idempotent if the surface is already
// Playing/Paused, per spec §4.7.
func (c *Client) Run(server string, settings Settings) error {
	if !c.Surface.BeginPlaying() {
		return nil
	}
	defer c.Surface.FinishReset()

	cc, err := protocol.Dial(server)
	if err != nil {
		return err
	}
	defer cc.Close()

	return c.stream(cc, server, settings)
}

// runWithConn drives Run's post-dial logic over an already-connected
// ClientConn (used by tests, which commonly use net.Pipe rather than a
// real dialed TCP socket, mirroring protocol.NewClientConn's own purpose).
func (c *Client) runWithConn(cc *protocol.ClientConn, settings Settings) error {
	if !c.Surface.BeginPlaying() {
		return nil
	}
	defer c.Surface.FinishReset()
	defer cc.Close()

	return c.stream(cc, cc.Conn().RemoteAddr().String(), settings)
}

func (c *Client) stream(cc *protocol.ClientConn, server string, settings Settings) error {
	caps, err := cc.ReadCapabilities()
	if err != nil {
		return err
	}
	encoder := protocol.NegotiateEncoder(caps, settings.Encoder)

	req := wire.Request{
		Kind:     wire.RequestPlay,
		Settings: wire.Settings{Encoder: encoder, Cover: settings.Cover},
	}
	if settings.PlaylistName != "" {
		req.Kind = wire.RequestPlayPlaylist
		req.PlaylistName = settings.PlaylistName
	}
	if err := cc.SendRequest(req); err != nil {
		return err
	}

	res, err := cc.ReadResult()
	if err != nil {
		return err
	}
	switch res.Kind {
	case wire.ResultOk:
	case wire.ResultError:
		return protocol.RequestErrorFromResult(res)
	default:
		return fmt.Errorf("radioclient: unexpected result kind %v for play request", res.Kind)
	}

	sk := newLazySink(control.Gain(c.Surface.GetVolume()))
	c.Surface.AttachSink(sk)
	defer sk.Close()

	logger.Info("streaming started", "server", server, "encoder", encoder.String())
	core := pacing.New(cc, c.Surface)
	return core.Run()
}
