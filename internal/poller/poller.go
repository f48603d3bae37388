// Package poller refreshes the patient detail view on a fixed interval.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
)

const DefaultInterval = 5 * time.Second

// VitalsSource returns a patient's readings, newest first.
type VitalsSource interface {
	PatientVitals(ctx context.Context, patientID int64) ([]models.VitalReading, error)
}

// LatestSink receives the newest reading.
type LatestSink interface {
	Apply(reading models.VitalReading)
}

// HistorySink receives the full newest-first history.
type HistorySink interface {
	Sync(history []models.VitalReading)
}

// FailureObserver is told about failed fetches.
type FailureObserver interface {
	PollFailed()
}

// Config wires a Poller. History and Failures are optional.
type Config struct {
	PatientID int64
	Interval  time.Duration
	Timeout   time.Duration
	Source    VitalsSource
	Latest    LatestSink
	History   HistorySink
	Failures  FailureObserver
}

// Poller fetches off the loop and applies results on it. A tick is skipped while
// the previous fetch is still running.
type Poller struct {
	cfg    Config
	sched  eventloop.Scheduler
	logger *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	task     eventloop.Task
	inflight bool
	polls    int
}

func New(cfg Config, sched eventloop.Scheduler, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 || cfg.Timeout > cfg.Interval {
		cfg.Timeout = cfg.Interval
	}
	return &Poller{cfg: cfg, sched: sched, logger: logger.With(zap.Int64("patient_id", cfg.PatientID))}
}

// Start fetches once immediately and then every interval. Call on the loop.
func (p *Poller) Start(ctx context.Context) {
	if p.task != nil {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.poll()
	p.task = p.sched.Every(p.cfg.Interval, p.poll)
}

// Stop cancels the timer and any fetch in flight. Call on the loop.
func (p *Poller) Stop() {
	if p.task != nil {
		p.task.Cancel()
		p.task = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Polls returns the number of fetches started.
func (p *Poller) Polls() int {
	return p.polls
}

func (p *Poller) poll() {
	if p.inflight {
		p.logger.Debug("previous vitals fetch still running")
		return
	}
	p.inflight = true
	p.polls++

	ctx := p.ctx
	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
		history, err := p.cfg.Source.PatientVitals(fetchCtx, p.cfg.PatientID)
		p.sched.Post(func() { p.apply(ctx, history, err) })
	}()
}

func (p *Poller) apply(ctx context.Context, history []models.VitalReading, err error) {
	p.inflight = false
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if p.cfg.Failures != nil {
			p.cfg.Failures.PollFailed()
		}
		p.logger.Warn("fetch patient vitals", zap.Error(err))
		return
	}
	if len(history) == 0 {
		return
	}
	p.cfg.Latest.Apply(history[0])
	if p.cfg.History != nil {
		p.cfg.History.Sync(history)
	}
}
