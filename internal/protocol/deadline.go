package protocol

import (
	"net"
	"time"

	lrerrors "github.com/lonelyradio/lonelyradio/internal/errors"
)

// Deadlines mirror the teacher's handshake timing discipline: short for the
// handshake/negotiation phase, much longer once streaming begins since
// fragments may legitimately be large or infrequent (§4.3's chunking policy
// means a Flac/Vorbis fragment can take a while to accumulate server-side).
const (
	HandshakeTimeout = 5 * time.Second
	StreamTimeout    = 30 * time.Second
)

func setReadDeadline(conn net.Conn, d time.Duration) error {
	if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return lrerrors.NewProtocolError("set_read_deadline", err)
	}
	return nil
}

func setWriteDeadline(conn net.Conn, d time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
		return lrerrors.NewProtocolError("set_write_deadline", err)
	}
	return nil
}

func isTimeoutErr(err error) bool {
	return lrerrors.IsTimeout(err)
}

func writeFull(conn net.Conn, b []byte) error {
	_, err := conn.Write(b)
	return err
}
