package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/alerts"
	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/recorder"
	"github.com/synheart/wardwatch/internal/stream"
	"github.com/synheart/wardwatch/internal/transport"
)

var (
	replayIn     string
	replaySpeed  float64
	replayFormat string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recording through the monitor offline",
	Long: `Feeds a recorded stream through the same routing, alert and card logic as a
live session and prints the resulting board. Acknowledgments are accepted locally.

Examples:
  wardwatch replay --in night-shift.ndjson
  wardwatch replay --in night-shift.pb --format protobuf --speed 0 --role doctor`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "Input file to replay (required)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback speed multiplier, 0 replays without delay")
	replayCmd.Flags().StringVar(&replayFormat, "format", "json", "Recording format: json|protobuf")
	replayCmd.MarkFlagRequired("in")
}

// localAcker accepts every acknowledgment without a backend.
type localAcker struct {
	logger *zap.Logger
}

func (a localAcker) Acknowledge(_ context.Context, alertID int64) (bool, error) {
	a.logger.Debug("acknowledged locally", zap.Int64("alert_id", alertID))
	return true, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	format, err := encoding.ParseFormat(replayFormat)
	if err != nil {
		return err
	}
	rep := recorder.NewReplayer(replayIn, format, replaySpeed, false)
	count, err := rep.CountFrames()
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	var first *models.Frame
	if count > 0 {
		if first, err = rep.FirstFrame(); err != nil {
			return fmt.Errorf("failed to read first frame: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(log)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	s, err := newSession(cfg, log, loop, localAcker{logger: log}, alerts.NopChime{})
	if err != nil {
		return err
	}

	if !globalOpts.Quiet {
		printReplayHeader(os.Stdout, replayIn, count, first, format, cfg.Role)
	}

	frames := make(chan models.Frame, 100)
	ended := make(chan struct{})
	client := s.streamClient(transport.NewChannelDialer(frames),
		stream.WithBackoff(stream.Backoff{}),
		stream.WithStateListener(func(st models.ConnectionState) {
			if st == models.StateClosed {
				close(ended)
			}
		}),
	)
	if err := loop.Do(ctx, func() { client.Start(loopCtx) }); err != nil {
		return err
	}

	replayErr := make(chan error, 1)
	go func() {
		err := rep.Replay(ctx, frames)
		close(frames)
		replayErr <- err
	}()

	select {
	case <-ended:
	case <-ctx.Done():
		loop.Do(context.Background(), client.Close)
		<-ended
	}
	if err := <-replayErr; err != nil && err != context.Canceled {
		return fmt.Errorf("replay error: %w", err)
	}

	if err := loop.Do(context.Background(), func() {
		s.render(os.Stdout)
	}); err != nil {
		return err
	}
	if !globalOpts.Quiet {
		fmt.Println("\nReplay complete")
	}
	return nil
}

func printReplayHeader(w io.Writer, file string, count int, first *models.Frame, format encoding.Format, role models.Role) {
	recorded := "-"
	if first != nil && !first.ReceivedAt.IsZero() {
		recorded = first.ReceivedAt.Local().Format(time.RFC3339)
	}
	fmt.Fprintf(w, "▶️  Replay Session Started\n\n")
	fmt.Fprintf(w, "File:         %s\n", file)
	fmt.Fprintf(w, "Frames:       %d\n", count)
	fmt.Fprintf(w, "Recorded at:  %s\n", recorded)
	fmt.Fprintf(w, "Format:       %s\n", format)
	fmt.Fprintf(w, "Role:         %s\n\n", role)
}
