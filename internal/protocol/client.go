package protocol

import (
	"net"

	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

// ClientState is the client-side state machine of spec §4.2:
// Connecting -> SentMagic -> ReceivedCaps -> SentRequest -> (Streaming | Errored) -> Done.
type ClientState uint8

const (
	Connecting ClientState = iota
	SentMagic
	ReceivedCaps
	SentRequest
	Streaming
	Errored
	Done
)

// ClientConn drives the client side of one connection.
type ClientConn struct {
	conn  net.Conn
	r     *wire.Reader
	state ClientState
}

// Dial opens a TCP connection, disables Nagle's algorithm, and writes the
// magic handshake bytes (spec §4.2 client steps 1-2).
func Dial(addr string) (*ClientConn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, lrerrors.NewHandshakeError("dial", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	c := &ClientConn{conn: conn, r: wire.NewReader(conn), state: Connecting}
	if err := c.sendMagic(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClientConn wraps an already-connected net.Conn (used by tests, which
// commonly use net.Pipe rather than a real dialed TCP socket).
func NewClientConn(conn net.Conn) (*ClientConn, error) {
	c := &ClientConn{conn: conn, r: wire.NewReader(conn), state: Connecting}
	if err := c.sendMagic(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ClientConn) sendMagic() error {
	if err := setWriteDeadline(c.conn, HandshakeTimeout); err != nil {
		return err
	}
	if err := writeFull(c.conn, []byte(wire.Magic)); err != nil {
		return lrerrors.NewHandshakeError("write_magic", err)
	}
	c.state = SentMagic
	return nil
}

func (c *ClientConn) State() ClientState { return c.state }
func (c *ClientConn) Conn() net.Conn     { return c.conn }

// ReadCapabilities reads ServerCapabilities and transitions to ReceivedCaps.
func (c *ClientConn) ReadCapabilities() (wire.ServerCapabilities, error) {
	if err := setReadDeadline(c.conn, HandshakeTimeout); err != nil {
		return wire.ServerCapabilities{}, err
	}
	caps, err := c.r.ReadServerCapabilities()
	if err != nil {
		if isTimeoutErr(err) {
			return wire.ServerCapabilities{}, lrerrors.NewTimeoutError("read_capabilities", HandshakeTimeout, err)
		}
		return wire.ServerCapabilities{}, err
	}
	c.state = ReceivedCaps
	return caps, nil
}

// NegotiateEncoder implements the fallback rule of spec §4.2 client step 3:
// if the requested encoder isn't advertised, fall back to Pcm16 before
// sending the request.
func NegotiateEncoder(caps wire.ServerCapabilities, want wire.Encoder) wire.Encoder {
	if wire.NewEncoderSet(caps.Encoders...).Contains(want) {
		return want
	}
	return wire.Pcm16
}

// SendRequest writes Request and transitions to SentRequest.
func (c *ClientConn) SendRequest(req wire.Request) error {
	if err := setWriteDeadline(c.conn, HandshakeTimeout); err != nil {
		return err
	}
	if err := wire.WriteMessage(c.conn, req); err != nil {
		return err
	}
	c.state = SentRequest
	return nil
}

// ReadResult reads RequestResult and transitions to Streaming (Ok), Done
// (Playlist), or Errored (Error), matching the caller's handling in spec
// §4.2 client step 5.
func (c *ClientConn) ReadResult() (wire.RequestResult, error) {
	if err := setReadDeadline(c.conn, HandshakeTimeout); err != nil {
		return wire.RequestResult{}, err
	}
	res, err := c.r.ReadRequestResult()
	if err != nil {
		c.state = Errored
		if isTimeoutErr(err) {
			return wire.RequestResult{}, lrerrors.NewTimeoutError("read_result", HandshakeTimeout, err)
		}
		return wire.RequestResult{}, err
	}
	switch res.Kind {
	case wire.ResultOk:
		c.state = Streaming
	case wire.ResultPlaylist:
		c.state = Done
	case wire.ResultError:
		c.state = Errored
	}
	return res, nil
}

// ReadPlayMessage reads one T or F message during Streaming.
func (c *ClientConn) ReadPlayMessage() (wire.PlayMessage, error) {
	if err := setReadDeadline(c.conn, StreamTimeout); err != nil {
		return wire.PlayMessage{}, err
	}
	return c.r.ReadPlayMessage()
}

// ReadFragment reads exactly n bytes of fragment payload.
func (c *ClientConn) ReadFragment(n uint64) ([]byte, error) {
	if err := setReadDeadline(c.conn, StreamTimeout); err != nil {
		return nil, err
	}
	return c.r.ReadFragment(n)
}

// Close marks the client Done and closes the underlying connection.
func (c *ClientConn) Close() error {
	c.state = Done
	return c.conn.Close()
}

// RequestErrorFromResult converts a wire RequestResult::Error into the
// matching internal/errors domain error for callers to return up the stack.
func RequestErrorFromResult(res wire.RequestResult) error {
	return lrerrors.NewRequestError(lrerrors.RequestErrorKind(res.ErrorKind))
}
