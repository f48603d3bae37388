package stream

import (
	"time"

	"github.com/synheart/wardwatch/internal/models"
)

// Observer receives stream and routing events, for metrics.
type Observer interface {
	FrameReceived(kind models.Kind)
	FrameDropped(reason string)
	StateChanged(state models.ConnectionState)
	ReconnectScheduled(attempt int, delay time.Duration)
	AlertRouted(severity models.Severity, route string)
	AlertsDuplicated(n int)
	AlertsSuppressed(n int)
	Acknowledged(outcome string)
}

// Alert routes reported to AlertRouted.
const (
	RouteModal = "modal"
	RouteToast = "toast"
)

type nopObserver struct{}

func (nopObserver) FrameReceived(models.Kind)                  {}
func (nopObserver) FrameDropped(string)                        {}
func (nopObserver) StateChanged(models.ConnectionState)        {}
func (nopObserver) ReconnectScheduled(int, time.Duration)      {}
func (nopObserver) AlertRouted(models.Severity, string)        {}
func (nopObserver) AlertsDuplicated(int)                       {}
func (nopObserver) AlertsSuppressed(int)                       {}
func (nopObserver) Acknowledged(string)                        {}
