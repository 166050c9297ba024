// Package protocol implements the paired server/client state machines of
// spec §4.2: handshake, capability negotiation, and the streaming phase
// built on top of internal/wire's frame codec.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"net"

	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// ServerState is the server-side state machine of spec §4.2:
// AwaitMagic -> SendingCaps -> AwaitRequest -> (Playing | ListedAndClosing) -> Closed.
type ServerState uint8

const (
	AwaitMagic ServerState = iota
	SendingCaps
	AwaitRequest
	Playing
	ListedAndClosing
	Closed
)

// ErrMagicMismatch is returned by Negotiate when the client's first 8 bytes
// do not equal the magic constant. Per spec the connection must be closed
// silently; callers should not log this as an error.
var ErrMagicMismatch = errors.New("protocol: magic mismatch")

// ServerConn drives one accepted connection through the server state
// machine. It owns no goroutines; the caller (the dispatcher) drives calls.
type ServerConn struct {
	conn  net.Conn
	r     *wire.Reader
	caps  wire.ServerCapabilities
	state ServerState
}

func NewServerConn(conn net.Conn, caps wire.ServerCapabilities) *ServerConn {
	return &ServerConn{
		conn:  conn,
		r:     wire.NewReader(conn),
		caps:  caps,
		state: AwaitMagic,
	}
}

func (s *ServerConn) State() ServerState { return s.state }
func (s *ServerConn) Conn() net.Conn     { return s.conn }

// Negotiate drives AwaitMagic -> SendingCaps -> AwaitRequest and returns the
// client's parsed Request. Callers must follow up with exactly one of
// RespondOk, RespondPlaylist, or RespondError to complete the transition.
func (s *ServerConn) Negotiate() (wire.Request, error) {
	if err := s.awaitMagic(); err != nil {
		return wire.Request{}, err
	}
	if err := s.sendCapabilities(); err != nil {
		return wire.Request{}, err
	}
	return s.awaitRequest()
}

func (s *ServerConn) awaitMagic() error {
	if err := setReadDeadline(s.conn, HandshakeTimeout); err != nil {
		return err
	}
	buf := make([]byte, len(wire.Magic))
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		if isTimeoutErr(err) {
			return lrerrors.NewTimeoutError("await_magic", HandshakeTimeout, err)
		}
		return lrerrors.NewHandshakeError("await_magic", err)
	}
	if string(buf) != wire.Magic {
		return ErrMagicMismatch
	}
	s.state = SendingCaps
	return nil
}

func (s *ServerConn) sendCapabilities() error {
	if err := setWriteDeadline(s.conn, HandshakeTimeout); err != nil {
		return err
	}
	if err := wire.WriteMessage(s.conn, s.caps); err != nil {
		return err
	}
	s.state = AwaitRequest
	return nil
}

func (s *ServerConn) awaitRequest() (wire.Request, error) {
	if err := setReadDeadline(s.conn, HandshakeTimeout); err != nil {
		return wire.Request{}, err
	}
	req, err := s.r.ReadRequest()
	if err != nil {
		if isTimeoutErr(err) {
			return wire.Request{}, lrerrors.NewTimeoutError("await_request", HandshakeTimeout, err)
		}
		return wire.Request{}, err
	}
	return req, nil
}

// ValidateSettings implements the validation rules of spec §4.2 step 3,
// checked before RespondOk. It does not check playlist existence, which the
// dispatcher resolves itself (it alone knows the set of named playlists).
func ValidateSettings(caps wire.ServerCapabilities, s wire.Settings) error {
	if s.Cover < -1 {
		return lrerrors.NewRequestError(lrerrors.WrongCoverSize)
	}
	supported := wire.NewEncoderSet(caps.Encoders...)
	if !supported.Contains(s.Encoder) {
		return lrerrors.NewRequestError(lrerrors.UnsupportedEncoder)
	}
	return nil
}

// RespondOk writes RequestResult::Ok and transitions to Playing.
func (s *ServerConn) RespondOk() error {
	if err := setWriteDeadline(s.conn, HandshakeTimeout); err != nil {
		return err
	}
	if err := wire.WriteMessage(s.conn, wire.RequestResult{Kind: wire.ResultOk}); err != nil {
		return err
	}
	s.state = Playing
	return nil
}

// RespondPlaylist writes RequestResult::Playlist and transitions to
// ListedAndClosing; the caller must close the connection after flush.
func (s *ServerConn) RespondPlaylist(names []string) error {
	if err := setWriteDeadline(s.conn, HandshakeTimeout); err != nil {
		return err
	}
	msg := wire.RequestResult{Kind: wire.ResultPlaylist, Playlists: names}
	if err := wire.WriteMessage(s.conn, msg); err != nil {
		return err
	}
	s.state = ListedAndClosing
	return nil
}

// RespondError writes RequestResult::Error(kind) and transitions to Closed;
// the caller must close the connection.
func (s *ServerConn) RespondError(kind wire.RequestErrorKind) error {
	_ = setWriteDeadline(s.conn, HandshakeTimeout)
	msg := wire.RequestResult{Kind: wire.ResultError, ErrorKind: kind}
	err := wire.WriteMessage(s.conn, msg)
	s.state = Closed
	return err
}

// WritePlayMessage writes one T or F message during Playing.
func (s *ServerConn) WritePlayMessage(msg wire.PlayMessage) error {
	if err := setWriteDeadline(s.conn, StreamTimeout); err != nil {
		return err
	}
	return wire.WriteMessage(s.conn, msg)
}

// WriteFragment writes a fragment's raw payload bytes directly, bypassing
// the object codec per §4.1.
func (s *ServerConn) WriteFragment(payload []byte) error {
	if err := setWriteDeadline(s.conn, StreamTimeout); err != nil {
		return err
	}
	if _, err := s.conn.Write(payload); err != nil {
		return fmt.Errorf("write fragment payload: %w", err)
	}
	return nil
}

// RequestErrorKindFromDomain maps an internal/errors.RequestErrorKind to its
// wire tag. Both enums are kept in lockstep deliberately: each numbers
// NoSuchPlaylist, WrongCoverSize, UnsupportedEncoder as 0, 1, 2.
func RequestErrorKindFromDomain(k lrerrors.RequestErrorKind) wire.RequestErrorKind {
	return wire.RequestErrorKind(k)
}
