package dispatcher

import (
	"net"
	"testing"
	"time"

	"github.com/lonelyradio/lonelyradio/internal/codec/encoder"
	"github.com/lonelyradio/lonelyradio/internal/protocol"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

func TestServerStartAcceptStop(t *testing.T) {
	store := newTestStore(t)
	d := New(Config{
		Capabilities: wire.ServerCapabilities{Encoders: []wire.Encoder{wire.Pcm16}},
		Encoder:      encoder.Config{MaxSampleRate: 48000, ArtworkCap: 512},
		Store:        store,
	})

	s := NewServer("127.0.0.1:0", d)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatalf("expected second Start to fail")
	}

	addr := s.Addr()
	if addr == nil {
		t.Fatalf("expected non-nil Addr after Start")
	}

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	cc, err := protocol.NewClientConn(conn)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	if _, err := cc.ReadCapabilities(); err != nil {
		t.Fatalf("read caps: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.ConnectionCount() != 1 {
		t.Fatalf("expected 1 active connection, got %d", s.ConnectionCount())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Addr() != nil {
		t.Fatalf("expected nil Addr after Stop")
	}
	cc.Close()
}
