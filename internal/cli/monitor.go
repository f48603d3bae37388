package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/alerts"
	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/poller"
	"github.com/synheart/wardwatch/internal/recorder"
	"github.com/synheart/wardwatch/internal/stream"
	"github.com/synheart/wardwatch/internal/transport"
)

const (
	refreshInterval = time.Second
	tapBuffer       = 256
)

type monitorOptions struct {
	PatientID   int64
	MetricsAddr string
	RecordPath  string
	Format      string
}

var monitorOpts monitorOptions

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the ward dashboard stream in the terminal",
	Long: `Connects to the dashboard stream, keeps patient cards current and escalates
emergency alerts. Type "a" to acknowledge the alert on screen, "a <id>" to
acknowledge a listed alert, or "d" to dismiss.

Examples:
  wardwatch monitor --base-url http://ward.local:5000
  wardwatch monitor --mode socket --patient 12 --metrics-addr :9102`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd, monitorOpts)
	},
}

func init() {
	bindMonitorFlags(monitorCmd, &monitorOpts)
	monitorCmd.Flags().StringVar(&monitorOpts.RecordPath, "record", "", "Record every received frame to file")
	monitorCmd.Flags().StringVar(&monitorOpts.Format, "format", "json", "Recording format: json|protobuf")
}

func bindMonitorFlags(cmd *cobra.Command, opts *monitorOptions) {
	cmd.Flags().Int64Var(&opts.PatientID, "patient", 0, "Patient id for the detail view and chart")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runMonitor(cmd *cobra.Command, opts monitorOptions) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("patient") {
		cfg.PatientID = opts.PatientID
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(log)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	client := newAPIClient(cfg, log)
	var chime alerts.Chime = alerts.NopChime{}
	if cfg.Alerts.Chime && !globalOpts.Quiet {
		chime = alerts.NewBellChime(os.Stdout)
	}
	s, err := newSession(cfg, log, loop, client, chime)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := s.metrics.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	var streamOpts []stream.Option
	var recDone chan error
	if opts.RecordPath != "" {
		format, err := encoding.ParseFormat(opts.Format)
		if err != nil {
			return err
		}
		rec, err := recorder.NewRecorder(opts.RecordPath, format)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		tap := make(chan models.Frame, tapBuffer)
		dispatcher := transport.NewDispatcher(tap, tapBuffer, log)
		frames := dispatcher.Subscribe()
		go dispatcher.Run(ctx)

		recDone = make(chan error, 1)
		go func() { recDone <- rec.RecordFromChannel(ctx, frames, nil) }()
		streamOpts = append(streamOpts, stream.WithTap(tap))
		log.Info("recording frames", zap.String("file", opts.RecordPath), zap.String("format", string(format)))
	}

	streamClient := s.streamClient(newDialer(cfg, client), streamOpts...)
	var detail *poller.Poller
	if cfg.PatientID != 0 {
		detail = s.detailPoller(client)
	}

	var printer eventloop.Task
	err = loop.Do(ctx, func() {
		s.router.Seed(loopCtx, loop, client)
		if cfg.Realtime {
			streamClient.Start(loopCtx)
		} else {
			log.Info("realtime updates disabled")
		}
		if detail != nil {
			detail.Start(loopCtx)
		}
		if !globalOpts.Quiet {
			printer = loop.Every(refreshInterval, func() { redraw(os.Stdout, s) })
		}
	})
	if err != nil {
		return err
	}

	go readCommands(ctx, os.Stdin, loop, s.ctrl, log)

	<-ctx.Done()

	// Unload: close the stream and stop every timer before the loop exits.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.Do(shutdownCtx, func() {
		streamClient.Close()
		if detail != nil {
			detail.Stop()
		}
		if printer != nil {
			printer.Cancel()
		}
	}); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}

	if recDone != nil {
		if err := <-recDone; err != nil {
			return fmt.Errorf("recording failed: %w", err)
		}
		fmt.Printf("\nRecording saved: %s\n", opts.RecordPath)
	}
	return nil
}

func redraw(w io.Writer, s *session) {
	fmt.Fprint(w, "\033[H\033[2J")
	s.render(w)
}

type commandKind int

const (
	cmdAcknowledge commandKind = iota + 1
	cmdAcknowledgeID
	cmdDismiss
)

type command struct {
	kind    commandKind
	alertID int64
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "a", "ack", "acknowledge":
		if len(fields) == 1 {
			return command{kind: cmdAcknowledge}, nil
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id <= 0 {
			return command{}, fmt.Errorf("invalid alert id %q", fields[1])
		}
		return command{kind: cmdAcknowledgeID, alertID: id}, nil
	case "d", "dismiss":
		return command{kind: cmdDismiss}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", fields[0])
}

// readCommands forwards operator input to the alert controller on the loop.
func readCommands(ctx context.Context, in io.Reader, sched eventloop.Scheduler, ctrl *alerts.Controller, log *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		c, err := parseCommand(scanner.Text())
		if err != nil {
			log.Warn("ignored input", zap.Error(err))
			continue
		}
		switch c.kind {
		case cmdAcknowledge:
			sched.Post(ctrl.Acknowledge)
		case cmdAcknowledgeID:
			sched.Post(func() { ctrl.AcknowledgeAlert(models.Alert{ID: c.alertID}) })
		case cmdDismiss:
			sched.Post(ctrl.Dismiss)
		}
	}
}
