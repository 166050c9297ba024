package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// pulseConn is a connection to a PulseAudio (or PipeWire pulse-compatible)
// server over its native tagged-list protocol: a control channel carrying
// tagged command/reply frames, interleaved on the wire with raw data-channel
// frames once a playback stream has been created.
type pulseConn struct {
	conn          net.Conn
	mu            sync.Mutex
	nextTag       uint32
	serverVersion uint32
}

const cookieSize = 256

// dialPulse locates the local PulseAudio socket, connects, and completes the
// AUTH/SET_CLIENT_NAME handshake every native-protocol client must send
// before issuing any other command.
func dialPulse() (*pulseConn, error) {
	socketPath := findSocket()
	if socketPath == "" {
		return nil, fmt.Errorf("sink: could not find pulseaudio socket")
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("sink: dial %s: %w", socketPath, err)
	}

	c := &pulseConn{conn: conn}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *pulseConn) Close() error {
	return c.conn.Close()
}

// findSocket locates the PulseAudio native socket: $PULSE_SERVER (when it
// names a unix path), then $XDG_RUNTIME_DIR/pulse/native, then the
// conventional /run/user/<uid>/pulse/native PipeWire also binds to.
func findSocket() string {
	if server := os.Getenv("PULSE_SERVER"); server != "" {
		if len(server) > 5 && server[:5] == "unix:" {
			return server[5:]
		}
		if server[0] == '/' {
			return server
		}
	}

	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		path := filepath.Join(runtimeDir, "pulse", "native")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	uid := strconv.Itoa(os.Getuid())
	path := filepath.Join("/run", "user", uid, "pulse", "native")
	if _, err := os.Stat(path); err == nil {
		return path
	}

	return ""
}

// authCookie locates the PulseAudio authentication cookie, trying
// $PULSE_COOKIE, then ~/.config/pulse/cookie, then ~/.pulse-cookie, and
// falling back to 256 zero bytes, which PipeWire accepts as anonymous auth.
func authCookie() []byte {
	var candidates []string
	if path := os.Getenv("PULSE_COOKIE"); path != "" {
		candidates = append(candidates, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "pulse", "cookie"),
			filepath.Join(home, ".pulse-cookie"),
		)
	}
	for _, path := range candidates {
		if data, err := os.ReadFile(path); err == nil && len(data) >= cookieSize {
			return data[:cookieSize]
		}
	}
	return make([]byte, cookieSize)
}

// handshake sends AUTH followed by SET_CLIENT_NAME and records the
// negotiated server protocol version.
func (c *pulseConn) handshake() error {
	replyCmd, _, tp, err := c.call(cmdAuth, func(tb *tagBuilder) {
		tb.addU32(protocolVersion)
		tb.addArbitrary(authCookie())
	})
	if err != nil {
		return fmt.Errorf("sink: auth: %w", err)
	}
	if replyCmd == cmdError {
		code, _ := tp.readU32()
		return fmt.Errorf("%w: auth rejected (code %d)", errServer, code)
	}
	if replyCmd != cmdReply {
		return fmt.Errorf("%w: auth unexpected response %d", errProtocol, replyCmd)
	}
	serverVersion, err := tp.readU32()
	if err != nil {
		return fmt.Errorf("sink: auth parse version: %w", err)
	}
	c.serverVersion = serverVersion

	replyCmd, _, _, err = c.call(cmdSetClientName, func(tb *tagBuilder) {
		tb.addPropList(map[string]string{"application.name": "lonelyradio"})
	})
	if err != nil {
		return fmt.Errorf("sink: set_client_name: %w", err)
	}
	if replyCmd == cmdError {
		return fmt.Errorf("%w: set_client_name rejected", errServer)
	}
	if replyCmd != cmdReply {
		return fmt.Errorf("%w: set_client_name unexpected response %d", errProtocol, replyCmd)
	}
	return nil
}

// call builds a control frame via build, sends it under a fresh tag, and
// blocks for its reply, draining any async notifications the server
// interleaves ahead of it. build may be nil for commands with no payload.
func (c *pulseConn) call(command uint32, build func(*tagBuilder)) (cmd uint32, tag uint32, tp *tagParser, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tb := newTagBuilder()
	if build != nil {
		build(tb)
	}

	tag = c.nextTag
	c.nextTag++
	frame := buildCommand(command, tag, tb.bytes())
	if _, err = c.conn.Write(frame); err != nil {
		return 0, 0, nil, fmt.Errorf("sink: write command %d: %w", command, err)
	}
	return c.drainForReply()
}

// writeData writes raw PCM data on a stream's data channel, chunked to stay
// under the descriptor's practical frame size.
func (c *pulseConn) writeData(channel uint32, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const maxChunk = 65536
	for len(data) > 0 {
		chunk := data
		if len(chunk) > maxChunk {
			chunk = data[:maxChunk]
		}
		data = data[len(chunk):]

		desc := buildDescriptor(uint32(len(chunk)), channel)
		if _, err := c.conn.Write(desc); err != nil {
			return fmt.Errorf("sink: write data descriptor: %w", err)
		}
		if _, err := c.conn.Write(chunk); err != nil {
			return fmt.Errorf("sink: write data payload: %w", err)
		}
	}
	return nil
}

// drainForReply reads and discards interleaved async notifications
// (STARTED, REQUEST, SUBSCRIBE_EVENT, ...) on the control channel until a
// REPLY or ERROR frame arrives. Must be called with c.mu held.
func (c *pulseConn) drainForReply() (cmd uint32, tag uint32, tp *tagParser, err error) {
	for {
		desc := make([]byte, descriptorSize)
		if _, err = io.ReadFull(c.conn, desc); err != nil {
			return 0, 0, nil, fmt.Errorf("sink: drain read descriptor: %w", err)
		}

		length := binary.BigEndian.Uint32(desc[0:4])
		channel := binary.BigEndian.Uint32(desc[4:8])

		if length == 0 {
			continue
		}

		payload := make([]byte, length)
		if _, err = io.ReadFull(c.conn, payload); err != nil {
			return 0, 0, nil, fmt.Errorf("sink: drain read payload: %w", err)
		}

		if channel != controlChannel {
			continue
		}

		tp = newTagParser(payload)
		if cmd, err = tp.readU32(); err != nil {
			return 0, 0, nil, err
		}
		if tag, err = tp.readU32(); err != nil {
			return 0, 0, nil, err
		}

		if cmd == cmdReply || cmd == cmdError {
			return cmd, tag, tp, nil
		}
	}
}
