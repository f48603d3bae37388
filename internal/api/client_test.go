package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method        string
	Path          string
	RequestedWith string
	ContentType   string
	ClientID      string
}

type backend struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, recordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		RequestedWith: r.Header.Get(HeaderRequestedWith),
		ContentType:   r.Header.Get("Content-Type"),
		ClientID:      r.Header.Get(HeaderClientID),
	})
}

func (b *backend) Requests() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.requests...)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *backend) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop()), b
}

func TestActiveAlerts(t *testing.T) {
	c, b := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"id": 1, "patient_id": 4, "patient_name": "Ada", "room": "101", "bed": "A", "type": "vital", "severity": "critical", "title": "Bradycardia", "message": "HR 45", "created_at": "2024-03-01T10:00:00"},
			{"id": 2, "patient_id": 5, "severity": "warning"}
		]`)
	})

	alerts, err := c.ActiveAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(1), alerts[0].ID)
	assert.True(t, alerts[0].IsCritical())
	assert.Equal(t, "Bradycardia", alerts[0].Title)

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, PathActiveAlerts, reqs[0].Path)
	assert.Equal(t, c.ClientID(), reqs[0].ClientID)
}

func TestActiveAlerts_ErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.ActiveAlerts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonSuccessStatus))
}

func TestPatientVitals(t *testing.T) {
	c, b := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"id": 30, "heart_rate": 80, "bp_systolic": 120, "bp_diastolic": 80, "oxygen": 97, "temperature": 98.6, "respiratory_rate": 16, "status": "normal", "recorded_at": "2024-03-01T10:00:10"},
			{"id": 29, "heart_rate": 78, "oxygen": 96, "recorded_at": "2024-03-01T10:00:05"}
		]`)
	})

	readings, err := c.PatientVitals(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, int64(7), readings[0].PatientID)
	assert.Equal(t, 97.0, *readings[0].OxygenSaturation)
	assert.Equal(t, 16.0, *readings[0].RespiratoryRate)
	assert.Equal(t, "/api/patient/7/vitals", b.Requests()[0].Path)
}

func TestAcknowledge_Success(t *testing.T) {
	c, b := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok": true, "alert_id": 12}`)
	})

	ok, err := c.Acknowledge(context.Background(), 12)
	require.NoError(t, err)
	assert.True(t, ok)

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/alert/12/acknowledge", reqs[0].Path)
	assert.Equal(t, "XMLHttpRequest", reqs[0].RequestedWith)
}

func TestAcknowledge_RejectedFallsBackToForm(t *testing.T) {
	c, b := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderRequestedWith) != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	ok, err := c.Acknowledge(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, ok)

	reqs := b.Requests()
	require.Len(t, reqs, 2, "acknowledgments are never retried")
	assert.Equal(t, "XMLHttpRequest", reqs[0].RequestedWith)
	assert.Empty(t, reqs[1].RequestedWith)
	assert.True(t, strings.HasPrefix(reqs[1].ContentType, "application/x-www-form-urlencoded"))
	assert.Equal(t, "/alert/3/acknowledge", reqs[1].Path)
}

func TestAcknowledge_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: url, Timeout: time.Second}, zap.NewNop())
	ok, err := c.Acknowledge(context.Background(), 3)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestReadsRetryOnServerError(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RetryCount: 1}, zap.NewNop())
	alerts, err := c.ActiveAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestOpenStream(t *testing.T) {
	c, b := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"vitals\": [], \"alerts\": []}\n\n")
	})

	body, err := c.OpenStream(context.Background())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data: ")
	assert.Equal(t, PathStream, b.Requests()[0].Path)
}

func TestOpenStream_ErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.OpenStream(context.Background())
	assert.ErrorIs(t, err, ErrNonSuccessStatus)
}
