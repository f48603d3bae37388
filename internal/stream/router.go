package stream

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/alerts"
	"github.com/synheart/wardwatch/internal/display"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
)

// DefaultPulse is how long the alert badge pulses after a new batch.
const DefaultPulse = time.Second

// ClassAcknowledged marks an alert list item whose acknowledgment succeeded.
const ClassAcknowledged = "acknowledged"

type (
	// VitalSink receives every vital reading.
	VitalSink interface {
		Apply(reading models.VitalReading)
	}
	// ChartSink receives readings of the charted patient.
	ChartSink interface {
		Append(reading models.VitalReading)
	}
	// Escalator displays critical alerts.
	Escalator interface {
		Show(alert models.Alert)
	}
	// Notifier shows transient notifications.
	Notifier interface {
		Show(level, message string) string
	}
	// Pulser draws attention to the alert badge.
	Pulser interface {
		Pulse(d time.Duration)
	}
	// AlertList holds one list item per known alert.
	AlertList interface {
		AddAlertItem(alertID int64, label string) *display.Element
		AlertItem(alertID int64) (*display.Element, bool)
	}
	// ActiveAlertSource lists the alerts that are open on the server.
	ActiveAlertSource interface {
		ActiveAlerts(ctx context.Context) ([]models.Alert, error)
	}
)

// RouterConfig wires the router to its sinks. Chart, Dedup, List and Observer are
// optional.
type RouterConfig struct {
	Role         models.Role
	Cards        VitalSink
	Chart        ChartSink
	ChartPatient int64
	Modal        Escalator
	Toasts       Notifier
	Count        *alerts.CountStore
	Badge        Pulser
	Dedup        *alerts.Dedup
	List         AlertList
	Pulse        time.Duration
	Observer     Observer
}

// Router applies decoded messages to the display. Call every method on the loop.
type Router struct {
	cfg    RouterConfig
	logger *zap.Logger
	acked  map[int64]bool
}

func NewRouter(cfg RouterConfig, logger *zap.Logger) *Router {
	if cfg.Pulse <= 0 {
		cfg.Pulse = DefaultPulse
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Router{cfg: cfg, logger: logger, acked: make(map[int64]bool)}
}

// Handle routes vitals to the cards and chart, then escalates the alert batch.
func (r *Router) Handle(env models.Envelope) {
	for _, v := range env.Vitals() {
		r.cfg.Cards.Apply(v)
		if r.cfg.Chart != nil && r.cfg.ChartPatient != 0 && v.PatientID == r.cfg.ChartPatient {
			r.cfg.Chart.Append(v)
		}
	}
	r.escalate(env.Alerts())
}

func (r *Router) escalate(batch []models.Alert) {
	if len(batch) == 0 {
		return
	}
	if r.cfg.Role == models.RoleAdmin {
		r.cfg.Observer.AlertsSuppressed(len(batch))
		r.logger.Debug("alerts suppressed for admin", zap.Int("count", len(batch)))
		return
	}
	if r.cfg.Dedup != nil {
		fresh, dups := r.cfg.Dedup.Filter(batch)
		if dups > 0 {
			r.cfg.Observer.AlertsDuplicated(dups)
			r.logger.Debug("dropping redelivered alerts", zap.Int("count", dups))
		}
		batch = fresh
		if len(batch) == 0 {
			return
		}
	}

	for _, a := range batch {
		r.track(a)
		if a.IsCritical() {
			r.cfg.Observer.AlertRouted(a.Severity, RouteModal)
			r.cfg.Modal.Show(a)
			continue
		}
		r.cfg.Observer.AlertRouted(a.Severity, RouteToast)
		r.cfg.Toasts.Show(string(a.Severity), a.Summary())
	}
	r.cfg.Count.Add(len(batch))
	r.cfg.Badge.Pulse(r.cfg.Pulse)
}

func (r *Router) track(a models.Alert) {
	if r.cfg.List == nil || !a.HasID() {
		return
	}
	if _, ok := r.cfg.List.AlertItem(a.ID); ok {
		return
	}
	r.cfg.List.AddAlertItem(a.ID, a.Summary())
}

// Acknowledged is the controller's ack listener: a successful acknowledgment dims
// the alert's list item and decrements the count. The count drops once per alert id.
func (r *Router) Acknowledged(res alerts.AckResult) {
	switch {
	case res.Err != nil:
		r.cfg.Observer.Acknowledged("error")
		return
	case !res.OK:
		r.cfg.Observer.Acknowledged("rejected")
		return
	}
	r.cfg.Observer.Acknowledged("ok")
	if res.Alert.HasID() {
		if r.acked[res.Alert.ID] {
			r.logger.Debug("alert already acknowledged", zap.Int64("alert_id", res.Alert.ID))
			return
		}
		r.acked[res.Alert.ID] = true
	}
	if r.cfg.List != nil {
		if item, ok := r.cfg.List.AlertItem(res.Alert.ID); ok {
			item.AddClass(ClassAcknowledged)
		}
	}
	r.cfg.Count.Decrement()
}

// Seed fetches the open alerts once off the loop, then resets the count to the
// number of critical ones. Seeded alerts are listed and marked seen so a later
// redelivery is not counted twice. Fetch failures leave the count untouched.
func (r *Router) Seed(ctx context.Context, sched eventloop.Scheduler, src ActiveAlertSource) {
	go func() {
		active, err := src.ActiveAlerts(ctx)
		sched.Post(func() {
			if err != nil {
				r.logger.Warn("fetch active alerts", zap.Error(err))
				return
			}
			for _, a := range active {
				r.track(a)
				if r.cfg.Dedup != nil {
					r.cfg.Dedup.Seen(a)
				}
			}
			r.cfg.Count.Reset(models.CountCritical(active))
			r.logger.Info("alert count seeded", zap.Int("active", len(active)), zap.Int("critical", r.cfg.Count.Value()))
		})
	}()
}
