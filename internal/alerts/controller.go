package alerts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/display"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
)

const (
	DefaultCountdown  = 60 * time.Second
	DefaultAckTimeout = 10 * time.Second
)

// State of the emergency modal.
type State string

const (
	StateIdle          State = "idle"
	StateShowing       State = "showing"
	StateCountingDown  State = "counting-down"
	StateAcknowledging State = "acknowledging"
	StateExpired       State = "expired"
	StateClosed        State = "closed"
)

// Acknowledger sends an acknowledgment to the backend. ok is false when the
// server rejected the request; err is set when the request could not complete.
type Acknowledger interface {
	Acknowledge(ctx context.Context, alertID int64) (ok bool, err error)
}

// AckResult reports the outcome of one acknowledgment.
type AckResult struct {
	Alert models.Alert
	OK    bool
	Err   error
}

// Controller drives the emergency modal: show, count down, acknowledge or expire,
// close. All methods must be called on the event loop.
type Controller struct {
	sched      eventloop.Scheduler
	modal      *display.Modal
	chime      Chime
	acker      Acknowledger
	logger     *zap.Logger
	window     time.Duration
	ackTimeout time.Duration
	onAck      func(AckResult)

	state     State
	outcome   State
	current   models.Alert
	cycle     uint64
	remaining int
	countdown eventloop.Task
	pending   map[int64]bool
	acked     map[int64]bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithCountdown sets the display window before an unacknowledged alert expires.
func WithCountdown(d time.Duration) ControllerOption {
	return func(c *Controller) { c.window = d }
}

// WithAckTimeout bounds each acknowledgment request.
func WithAckTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.ackTimeout = d }
}

// WithAckListener registers a callback run on the loop after every acknowledgment.
func WithAckListener(fn func(AckResult)) ControllerOption {
	return func(c *Controller) { c.onAck = fn }
}

func NewController(sched eventloop.Scheduler, modal *display.Modal, chime Chime, acker Acknowledger, logger *zap.Logger, opts ...ControllerOption) *Controller {
	if chime == nil {
		chime = NopChime{}
	}
	c := &Controller{
		sched:      sched,
		modal:      modal,
		chime:      chime,
		acker:      acker,
		logger:     logger,
		window:     DefaultCountdown,
		ackTimeout: DefaultAckTimeout,
		state:      StateIdle,
		pending:    make(map[int64]bool),
		acked:      make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	modal.SetOnHidden(c.handleHidden)
	return c
}

func (c *Controller) State() State {
	return c.state
}

// Outcome reports how the last display cycle ended: closed after an
// acknowledgment or dismissal, or expired.
func (c *Controller) Outcome() State {
	return c.outcome
}

// Current returns the alert on display.
func (c *Controller) Current() models.Alert {
	return c.current
}

// Remaining returns the seconds left on the countdown.
func (c *Controller) Remaining() int {
	return c.remaining
}

// Show displays alert, replacing whatever was on screen.
func (c *Controller) Show(alert models.Alert) {
	c.teardown()
	c.cycle++
	c.current = alert
	c.state = StateShowing

	c.modal.Title = alert.Heading()
	c.modal.Patient = alert.DisplayName()
	c.modal.Location = alert.Location()
	c.modal.Message = alert.Body()
	c.modal.Show()

	c.playCue()
	c.startCountdown()
}

// Acknowledge handles the acknowledge button. Repeated presses while a request is
// outstanding are ignored.
func (c *Controller) Acknowledge() {
	if c.state != StateCountingDown && c.state != StateShowing {
		return
	}
	c.teardown()

	if !c.current.HasID() {
		c.close(StateClosed)
		return
	}

	c.state = StateAcknowledging
	cycle := c.cycle
	alert := c.current
	if !c.send(alert, func(res AckResult) {
		if cycle == c.cycle && c.state == StateAcknowledging {
			c.close(StateClosed)
		}
	}) {
		c.close(StateClosed)
	}
}

// AcknowledgeAlert acknowledges an alert from the alert list. It reports false
// when a request for the same id is outstanding or already succeeded.
func (c *Controller) AcknowledgeAlert(alert models.Alert) bool {
	if !alert.HasID() {
		return false
	}
	return c.send(alert, nil)
}

// Dismiss closes the modal without acknowledging.
func (c *Controller) Dismiss() {
	c.modal.Hide()
}

// send issues the acknowledgment off the loop and posts the result back.
func (c *Controller) send(alert models.Alert, then func(AckResult)) bool {
	if c.pending[alert.ID] {
		c.logger.Debug("acknowledgment already in flight", zap.Int64("alert_id", alert.ID))
		return false
	}
	if c.acked[alert.ID] {
		c.logger.Debug("alert already acknowledged", zap.Int64("alert_id", alert.ID))
		return false
	}
	c.pending[alert.ID] = true

	go func() {
		res := c.call(alert)
		c.sched.Post(func() {
			delete(c.pending, alert.ID)
			if res.Err == nil && res.OK {
				c.acked[alert.ID] = true
			}
			if res.Err != nil {
				c.logger.Warn("alert acknowledgment failed", zap.Int64("alert_id", alert.ID), zap.Error(res.Err))
			} else if !res.OK {
				c.logger.Warn("alert acknowledgment rejected", zap.Int64("alert_id", alert.ID))
			}
			if c.onAck != nil {
				c.onAck(res)
			}
			if then != nil {
				then(res)
			}
		})
	}()
	return true
}

func (c *Controller) call(alert models.Alert) (res AckResult) {
	res.Alert = alert
	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Err = fmt.Errorf("acknowledge alert %d: %v", alert.ID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.ackTimeout)
	defer cancel()
	res.OK, res.Err = c.acker.Acknowledge(ctx, alert.ID)
	return res
}

func (c *Controller) startCountdown() {
	c.remaining = int(c.window / time.Second)
	c.renderCountdown()
	c.state = StateCountingDown
	c.countdown = c.sched.Every(time.Second, c.tick)
}

func (c *Controller) tick() {
	if c.state != StateCountingDown {
		return
	}
	c.remaining--
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.renderCountdown()
	if c.remaining == 0 {
		c.logger.Info("alert expired without acknowledgment", zap.Int64("alert_id", c.current.ID))
		c.close(StateExpired)
	}
}

func (c *Controller) renderCountdown() {
	c.modal.Countdown = strconv.Itoa(c.remaining)
	total := int(c.window / time.Second)
	if total > 0 {
		c.modal.Progress = float64(c.remaining) / float64(total)
	}
}

func (c *Controller) playCue() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("alert cue unavailable", zap.Any("panic", r))
		}
	}()
	if err := c.chime.Play(EmergencyCue); err != nil {
		c.logger.Debug("alert cue unavailable", zap.Error(err))
	}
}

// close ends the display cycle. via records how it ended.
func (c *Controller) close(via State) {
	c.teardown()
	c.state = via
	c.outcome = via
	c.modal.Hide()
	c.state = StateClosed
}

func (c *Controller) handleHidden() {
	c.teardown()
	if c.state == StateShowing || c.state == StateCountingDown {
		c.state = StateClosed
		c.outcome = StateClosed
	}
}

func (c *Controller) teardown() {
	if c.countdown != nil {
		c.countdown.Cancel()
		c.countdown = nil
	}
}
