package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/lonelyradio/lonelyradio/internal/wire"
)

func TestHandshakeAndPlayOk(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	caps := wire.ServerCapabilities{Encoders: []wire.Encoder{wire.Pcm16, wire.Flac}}
	errCh := make(chan error, 1)
	go func() {
		sc := NewServerConn(serverSide, caps)
		req, err := sc.Negotiate()
		if err != nil {
			errCh <- err
			return
		}
		if req.Kind != wire.RequestPlay {
			errCh <- errInvalid("expected Play request")
			return
		}
		if err := ValidateSettings(caps, req.Settings); err != nil {
			errCh <- err
			return
		}
		if err := sc.RespondOk(); err != nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	cc, err := NewClientConn(clientSide)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	gotCaps, err := cc.ReadCapabilities()
	if err != nil {
		t.Fatalf("read caps: %v", err)
	}
	if len(gotCaps.Encoders) != 2 {
		t.Fatalf("unexpected caps: %+v", gotCaps)
	}
	chosen := NegotiateEncoder(gotCaps, wire.Flac)
	if chosen != wire.Flac {
		t.Fatalf("expected flac chosen, got %v", chosen)
	}
	if err := cc.SendRequest(wire.Request{Kind: wire.RequestPlay, Settings: wire.Settings{Encoder: chosen, Cover: -1}}); err != nil {
		t.Fatalf("send request: %v", err)
	}
	res, err := cc.ReadResult()
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Kind != wire.ResultOk || cc.State() != Streaming {
		t.Fatalf("expected Ok/Streaming, got %+v state=%v", res, cc.State())
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("server side failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for server goroutine")
	}
}

func TestEncoderFallbackToPcm16(t *testing.T) {
	caps := wire.ServerCapabilities{Encoders: []wire.Encoder{wire.Pcm16}}
	if got := NegotiateEncoder(caps, wire.Opus); got != wire.Pcm16 {
		t.Fatalf("expected fallback to Pcm16, got %v", got)
	}
}

func TestValidateSettingsRejectsBadCover(t *testing.T) {
	caps := wire.ServerCapabilities{Encoders: []wire.Encoder{wire.Pcm16}}
	err := ValidateSettings(caps, wire.Settings{Encoder: wire.Pcm16, Cover: -2})
	if err == nil {
		t.Fatalf("expected WrongCoverSize error")
	}
}

func TestValidateSettingsRejectsUnsupportedEncoder(t *testing.T) {
	caps := wire.ServerCapabilities{Encoders: []wire.Encoder{wire.Pcm16}}
	err := ValidateSettings(caps, wire.Settings{Encoder: wire.Vorbis, Cover: 0})
	if err == nil {
		t.Fatalf("expected UnsupportedEncoder error")
	}
}

func TestMagicMismatchClosesSilently(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	errCh := make(chan error, 1)
	go func() {
		sc := NewServerConn(serverSide, wire.ServerCapabilities{})
		_, err := sc.Negotiate()
		errCh <- err
	}()

	clientSide.Write([]byte("wrongmag"))
	if err := <-errCh; err != ErrMagicMismatch {
		t.Fatalf("expected ErrMagicMismatch, got %v", err)
	}
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
func errInvalid(msg string) error { return simpleErr(msg) }
