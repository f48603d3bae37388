// Package api is the client for the ward dashboard REST endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/models"
)

const (
	PathStream       = "/api/vitals/stream"
	PathActiveAlerts = "/api/alerts/active"
	PathVitals       = "/api/patient/{id}/vitals"
	PathAcknowledge  = "/alert/{id}/acknowledge"

	HeaderRequestedWith = "X-Requested-With"
	HeaderClientID      = "X-Client-Id"
)

// ErrNonSuccessStatus is returned when the server answers outside 2xx.
var ErrNonSuccessStatus = errors.New("non-success status")

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RetryCount    int
	SessionCookie string
}

// Client talks to the dashboard backend. Reads are retried; acknowledgments are not.
type Client struct {
	http     *resty.Client
	stream   *resty.Client
	logger   *zap.Logger
	clientID string
}

// NewClient builds a client. The stream client has no overall timeout since the
// event stream stays open indefinitely.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	clientID := uuid.NewString()

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryReads).
		SetHeader("Accept", "application/json").
		SetHeader(HeaderClientID, clientID)

	streamClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetHeader(HeaderClientID, clientID)

	if opts.SessionCookie != "" {
		cookie := &http.Cookie{Name: "session", Value: opts.SessionCookie}
		httpClient.SetCookie(cookie)
		streamClient.SetCookie(cookie)
	}

	return &Client{
		http:     httpClient,
		stream:   streamClient,
		logger:   logger,
		clientID: clientID,
	}
}

// ClientID identifies this client session in request headers.
func (c *Client) ClientID() string {
	return c.clientID
}

func retryReads(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || r.StatusCode() >= http.StatusInternalServerError
}

// ActiveAlerts fetches every unacknowledged alert.
func (c *Client) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&alerts).
		ForceContentType("application/json").
		Get(PathActiveAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active alerts: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch active alerts: %w: %d", ErrNonSuccessStatus, resp.StatusCode())
	}
	return alerts, nil
}

// PatientVitals fetches the recent vitals of a patient, newest first.
func (c *Client) PatientVitals(ctx context.Context, patientID int64) ([]models.VitalReading, error) {
	var readings []models.VitalReading
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(patientID, 10)).
		SetResult(&readings).
		ForceContentType("application/json").
		Get(PathVitals)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vitals for patient %d: %w", patientID, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch vitals for patient %d: %w: %d", patientID, ErrNonSuccessStatus, resp.StatusCode())
	}
	for i := range readings {
		if readings[i].PatientID == 0 {
			readings[i].PatientID = patientID
		}
	}
	return readings, nil
}

// Acknowledge marks an alert acknowledged. When the request is rejected or fails
// the plain form endpoint is tried as a fallback; ok is true only when the first
// request succeeded.
func (c *Client) Acknowledge(ctx context.Context, alertID int64) (bool, error) {
	id := strconv.FormatInt(alertID, 10)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetHeader(HeaderRequestedWith, "XMLHttpRequest").
		Post(PathAcknowledge)
	if err != nil {
		c.logger.Warn("acknowledge request failed, falling back to form submit",
			zap.Int64("alert_id", alertID), zap.Error(err))
		c.submitForm(ctx, id)
		return false, fmt.Errorf("failed to acknowledge alert %d: %w", alertID, err)
	}
	if !resp.IsSuccess() {
		c.logger.Warn("acknowledge rejected, falling back to form submit",
			zap.Int64("alert_id", alertID), zap.Int("status_code", resp.StatusCode()))
		c.submitForm(ctx, id)
		return false, nil
	}

	c.logger.Info("alert acknowledged", zap.Int64("alert_id", alertID))
	return true, nil
}

func (c *Client) submitForm(ctx context.Context, id string) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetFormData(map[string]string{"alert_id": id}).
		SetHeader("Accept", "text/html").
		Post(PathAcknowledge)
	if err != nil {
		c.logger.Warn("form acknowledge failed", zap.String("alert_id", id), zap.Error(err))
		return
	}
	c.logger.Debug("form acknowledge submitted", zap.String("alert_id", id), zap.Int("status_code", resp.StatusCode()))
}

// OpenStream opens the server-push endpoint. The caller owns the returned body.
func (c *Client) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	resp, err := c.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(PathStream)
	if err != nil {
		return nil, fmt.Errorf("failed to open vitals stream: %w", err)
	}
	body := resp.RawBody()
	if !resp.IsSuccess() {
		if body != nil {
			body.Close()
		}
		return nil, fmt.Errorf("failed to open vitals stream: %w: %d", ErrNonSuccessStatus, resp.StatusCode())
	}
	return body, nil
}
