package cli

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/alerts"
	"github.com/synheart/wardwatch/internal/api"
	"github.com/synheart/wardwatch/internal/cards"
	"github.com/synheart/wardwatch/internal/chart"
	"github.com/synheart/wardwatch/internal/config"
	"github.com/synheart/wardwatch/internal/display"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/metrics"
	"github.com/synheart/wardwatch/internal/poller"
	"github.com/synheart/wardwatch/internal/stream"
	"github.com/synheart/wardwatch/internal/transport"
)

// session is one monitoring screen: the document and every component that owns
// part of it. All of it runs on sched.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	sched   eventloop.Scheduler
	metrics *metrics.Metrics

	board  *display.Board
	doc    *display.Document
	cards  *cards.Reconciler
	chart  *chart.Adapter
	count  *alerts.CountStore
	ctrl   *alerts.Controller
	router *stream.Router
}

func newSession(cfg *config.Config, logger *zap.Logger, sched eventloop.Scheduler, acker alerts.Acknowledger, chime alerts.Chime) (*session, error) {
	s := &session{
		cfg:     cfg,
		logger:  logger,
		sched:   sched,
		metrics: metrics.New(),
		doc:     display.NewDocument(),
	}

	badge := display.NewBadge(sched)
	status := display.NewStatusIndicator()
	modal := display.NewModal()
	toasts := display.NewToaster(sched, cfg.Alerts.ToastTTL)
	s.board = &display.Board{Doc: s.doc, Modal: modal, Toasts: toasts, Badge: badge, Status: status}

	s.count = alerts.NewCountStore(badge)
	s.count.OnChange(s.metrics.CountChanged)

	dedup, err := alerts.NewDedup(cfg.Alerts.DedupSize, cfg.Alerts.DedupTTL, sched.Now)
	if err != nil {
		return nil, err
	}

	cardOpts := []cards.Option{cards.WithFlash(cfg.Cards.Flash)}
	if cfg.Cards.AutoCreate {
		cardOpts = append(cardOpts, cards.WithAutoCreate())
	}
	s.cards = cards.NewReconciler(s.doc, sched, cardOpts...)

	routerCfg := stream.RouterConfig{
		Role:     cfg.Role,
		Cards:    s.cards,
		Toasts:   toasts,
		Count:    s.count,
		Badge:    badge,
		Dedup:    dedup,
		List:     s.doc,
		Pulse:    cfg.Alerts.Pulse,
		Observer: s.metrics,
	}
	if cfg.PatientID != 0 {
		s.doc.AddDetailView()
		view := chart.NewTextRenderer()
		s.chart = chart.NewAdapter(view, cfg.Chart.Points)
		s.board.Chart = view
		routerCfg.Chart = s.chart
		routerCfg.ChartPatient = cfg.PatientID
	}

	var router *stream.Router
	s.ctrl = alerts.NewController(sched, modal, chime, acker, logger,
		alerts.WithCountdown(cfg.Alerts.Countdown),
		alerts.WithAckTimeout(cfg.Alerts.AckTimeout),
		alerts.WithAckListener(func(res alerts.AckResult) { router.Acknowledged(res) }),
	)
	routerCfg.Modal = s.ctrl
	router = stream.NewRouter(routerCfg, logger)
	s.router = router
	return s, nil
}

// streamClient builds the realtime client feeding this session's router.
func (s *session) streamClient(dialer transport.Dialer, opts ...stream.Option) *stream.Client {
	base := []stream.Option{
		stream.WithBackoff(stream.Backoff{
			MaxAttempts: s.cfg.Reconnect.MaxAttempts,
			Base:        s.cfg.Reconnect.BaseDelay,
			Max:         s.cfg.Reconnect.MaxDelay,
		}),
		stream.WithObserver(s.metrics),
		stream.WithStateListener(s.board.Status.Set),
	}
	return stream.NewClient(s.sched, dialer, s.router, s.logger, append(base, opts...)...)
}

// detailPoller refreshes the detail view and chart of the configured patient.
func (s *session) detailPoller(src poller.VitalsSource) *poller.Poller {
	return poller.New(poller.Config{
		PatientID: s.cfg.PatientID,
		Interval:  s.cfg.Poll.Interval,
		Source:    src,
		Latest:    cards.NewDetail(s.doc),
		History:   s.chart,
		Failures:  s.metrics,
	}, s.sched, s.logger)
}

// render draws the board. Call on the loop.
func (s *session) render(w io.Writer) {
	s.board.Render(w)
}

// newDialer picks the transport named by the config.
func newDialer(cfg *config.Config, client *api.Client) transport.Dialer {
	if cfg.Mode == config.ModeSocket {
		header := http.Header{}
		header.Set(api.HeaderClientID, client.ClientID())
		if cfg.Session != "" {
			header.Set("Cookie", fmt.Sprintf("session=%s", cfg.Session))
		}
		return transport.NewWebSocketDialer(cfg.StreamSocketURL(), header)
	}
	return transport.NewSSEDialer(client)
}

func newAPIClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(api.Options{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.HTTP.Timeout,
		RetryCount:    cfg.HTTP.RetryCount,
		SessionCookie: cfg.Session,
	}, logger)
}
