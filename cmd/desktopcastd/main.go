// Command desktopcastd runs the desktop streaming server: it captures
// the host's primary display, encodes and fans it out to attached
// viewers, and injects their pointer input back into the host.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"desktopcast/internal/capture"
	"desktopcast/internal/config"
	"desktopcast/internal/server"
)

func main() {
	cfg := config.Default()
	cfg.BindFlags(pflag.CommandLine)
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, cursor, err := openCaptureSource(cfg)
	if err != nil {
		log.Fatalf("capture: %v", err)
	}

	srv := server.New(cfg, src, cursor)
	defer srv.Close()

	log.Printf("desktopcastd: health on :%d, media on :%d/ws", cfg.HealthPort, cfg.VideoPort)
	srv.Run(ctx)
	log.Println("desktopcastd: shutting down")
}

// openCaptureSource opens the platform capture backend, falling back to
// the synthetic stub source if the real one cannot be opened.
func openCaptureSource(cfg config.Config) (capture.Source, capture.CursorSource, error) {
	x11, err := capture.NewX11Source(cfg.Display)
	if err == nil {
		cursor, _ := capture.Source(x11).(capture.CursorSource)
		return x11, cursor, nil
	}
	log.Printf("capture: X11 backend unavailable (%v), using synthetic source", err)
	stub := capture.NewStubSource(1920, 1080)
	return stub, nil, nil
}
