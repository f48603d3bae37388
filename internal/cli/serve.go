package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/recorder"
	"github.com/synheart/wardwatch/internal/transport"
)

var (
	serveAddr   string
	serveIn     string
	serveFormat string
	serveSpeed  float64
	serveLoop   bool
	serveWait   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local dashboard stream for development",
	Long: `Serves the vitals event stream and the /ws WebSocket endpoint and optionally
broadcasts a recording to every connected client.

Examples:
  wardwatch serve --addr 127.0.0.1:5000
  wardwatch serve --in night-shift.ndjson --speed 2 --loop`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:5000", "Address to listen on")
	serveCmd.Flags().StringVar(&serveIn, "in", "", "Recording to broadcast")
	serveCmd.Flags().StringVar(&serveFormat, "format", "json", "Recording format: json|protobuf")
	serveCmd.Flags().Float64Var(&serveSpeed, "speed", 1.0, "Playback speed multiplier")
	serveCmd.Flags().BoolVar(&serveLoop, "loop", false, "Loop playback continuously")
	serveCmd.Flags().BoolVar(&serveWait, "wait", true, "Wait for a client before broadcasting")
}

func runServe(cmd *cobra.Command, args []string) error {
	_, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := transport.NewHub(log)
	hubErr := make(chan error, 1)
	go func() { hubErr <- hub.Start(ctx, serveAddr) }()

	if serveIn == "" {
		fmt.Printf("Serving on %s (Ctrl+C to stop)\n", serveAddr)
		return <-hubErr
	}

	format, err := encoding.ParseFormat(serveFormat)
	if err != nil {
		return err
	}
	rep := recorder.NewReplayer(serveIn, format, serveSpeed, serveLoop)
	count, err := rep.CountFrames()
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	fmt.Printf("Serving %d frames from %s on %s (Ctrl+C to stop)\n", count, serveIn, serveAddr)

	if serveWait {
		if err := waitForClient(ctx, hub); err != nil {
			return <-hubErr
		}
	}

	frames := make(chan models.Frame, 100)
	go func() {
		if err := hub.BroadcastFromChannel(ctx, frames); err != nil && err != context.Canceled {
			log.Warn("broadcast stopped", zap.Error(err))
		}
	}()

	err = rep.Replay(ctx, frames)
	close(frames)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("replay error: %w", err)
	}
	if ctx.Err() == nil {
		fmt.Println("Recording finished, still serving")
	}
	return <-hubErr
}

func waitForClient(ctx context.Context, hub *transport.Hub) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
