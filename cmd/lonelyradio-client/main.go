// Command lonelyradio-client implements the client control surface of spec
// §4.7 as a small CLI: it starts playback in the background and calls
// stop on an interrupt signal, loosely grounded on
// internal/rtmp/client/client.go's RunCLI entrypoint (dial, drive the
// protocol, report status to the terminal) though the two clients share
// little beyond that overall shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lonelyradio/lonelyradio/internal/config"
	"github.com/lonelyradio/lonelyradio/internal/logger"
	"github.com/lonelyradio/lonelyradio/pkg/radioclient"
)

func main() {
	cfg, err := config.ParseClientFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Printf("warning: invalid log level %q, using default\n", cfg.LogLevel)
	}
	log := logger.Logger().With("component", "cli")

	if cfg.ListPlaylists {
		names, err := radioclient.ListPlaylists(cfg.ServerAddr)
		if err != nil {
			log.Error("failed to list playlists", "error", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	c := radioclient.New()
	c.Surface.SetVolume(cfg.InitialVolume)

	runDone := make(chan error, 1)
	go func() {
		runDone <- c.Run(cfg.ServerAddr, radioclient.Settings{
			Encoder:      cfg.Encoder,
			Cover:        cfg.Cover,
			PlaylistName: cfg.Playlist,
		})
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		c.Surface.Stop()
	case err := <-runDone:
		if err != nil {
			log.Error("playback ended with error", "error", err)
			os.Exit(1)
		}
		return
	}

	<-runDone
	log.Info("stopped cleanly")
}
