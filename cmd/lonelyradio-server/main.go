// Command lonelyradio-server implements the broadcast server of spec §4.6:
// it loads the track snapshot, opens the listener, and serves connections
// until an interrupt signal arrives. Grounded on
// cmd/rtmp-server/main.go's flag-parse/start/signal-wait/timeout-bounded-
// stop shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lonelyradio/lonelyradio/internal/codec/encoder"
	"github.com/lonelyradio/lonelyradio/internal/config"
	"github.com/lonelyradio/lonelyradio/internal/dispatcher"
	"github.com/lonelyradio/lonelyradio/internal/logger"
	"github.com/lonelyradio/lonelyradio/internal/playlist"
	"github.com/lonelyradio/lonelyradio/internal/wire"
)

func main() {
	cfg, err := config.ParseServerFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Printf("warning: invalid log level %q, using default\n", cfg.LogLevel)
	}
	log := logger.Logger().With("component", "cli")

	store, err := playlist.Load(cfg.MusicDir, cfg.PlaylistsDir)
	if err != nil {
		log.Error("failed to load track library", "error", err)
		os.Exit(1)
	}

	d := dispatcher.New(dispatcher.Config{
		Capabilities: wire.ServerCapabilities{Encoders: cfg.Encoders},
		Encoder: encoder.Config{
			MaxSampleRate: cfg.MaxSampleRate,
			ArtworkCap:    cfg.ArtworkCap,
		},
		Store: store,
	})

	server := dispatcher.NewServer(cfg.ListenAddr, d)
	if err := server.Start(); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	log.Info("server started", "addr", server.Addr().String(), "tracks", len(store.Global()), "playlists", len(store.Names()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Stop(); err != nil {
			log.Error("server stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
