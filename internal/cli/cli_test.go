package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/alerts"
	"github.com/synheart/wardwatch/internal/config"
	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/recorder"
	"github.com/synheart/wardwatch/internal/stream"
	"github.com/synheart/wardwatch/internal/transport"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{line: "a", want: command{kind: cmdAcknowledge}},
		{line: "  ACK ", want: command{kind: cmdAcknowledge}},
		{line: "ack 42", want: command{kind: cmdAcknowledgeID, alertID: 42}},
		{line: "d", want: command{kind: cmdDismiss}},
		{line: "dismiss", want: command{kind: cmdDismiss}},
		{line: "ack x", wantErr: true},
		{line: "ack -3", wantErr: true},
		{line: "", wantErr: true},
		{line: "quit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyValue(t *testing.T) {
	tests := []struct {
		vital   string
		value   string
		want    models.Status
		wantErr bool
	}{
		{vital: "hr", value: "128", want: models.StatusWarning},
		{vital: "hr", value: "45", want: models.StatusCritical},
		{vital: "spo2", value: "92", want: models.StatusWarning},
		{vital: "temp", value: "98.6", want: models.StatusNormal},
		{vital: "hr", value: "NaN", wantErr: true},
		{vital: "hr", value: "Inf", wantErr: true},
		{vital: "spo2", value: "-inf", wantErr: true},
		{vital: "hr", value: "fast", wantErr: true},
		{vital: "pulse_pressure", value: "40", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.vital+"_"+tt.value, func(t *testing.T) {
			got, err := classifyValue(tt.vital, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintReplayHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shift.ndjson")
	at := time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC)
	rec, err := recorder.NewRecorder(path, encoding.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, rec.Record(models.Frame{Data: []byte(`{"vitals": [], "alerts": []}`), ReceivedAt: at}))
	require.NoError(t, rec.Record(models.Frame{Data: []byte(`{"vitals": [], "alerts": []}`), ReceivedAt: at.Add(time.Second)}))
	require.NoError(t, rec.Close())

	rep := recorder.NewReplayer(path, encoding.FormatJSON, 0, false)
	first, err := rep.FirstFrame()
	require.NoError(t, err)

	var out bytes.Buffer
	printReplayHeader(&out, path, 2, first, encoding.FormatJSON, models.RoleNurse)
	assert.Contains(t, out.String(), "Frames:       2")
	assert.Contains(t, out.String(), "Recorded at:  "+at.Local().Format(time.RFC3339))

	out.Reset()
	printReplayHeader(&out, path, 0, nil, encoding.FormatJSON, models.RoleNurse)
	assert.Contains(t, out.String(), "Recorded at:  -")
}

func settle(t *testing.T, sched *eventloop.Manual, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sched.Drain()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func replaySession(t *testing.T, cfg *config.Config, frames ...models.Frame) *session {
	t.Helper()
	sched := eventloop.NewManual(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	s, err := newSession(cfg, zap.NewNop(), sched, localAcker{logger: zap.NewNop()}, alerts.NopChime{})
	require.NoError(t, err)

	ch := make(chan models.Frame, len(frames))
	for _, f := range frames {
		ch <- f
	}
	close(ch)

	client := s.streamClient(transport.NewChannelDialer(ch), stream.WithBackoff(stream.Backoff{}))
	client.Start(t.Context())
	settle(t, sched, func() bool { return client.State() == models.StateClosed })
	return s
}

func TestSessionRoutesRecordedFrames(t *testing.T) {
	cfg := config.Default()
	s := replaySession(t, cfg,
		models.Frame{Data: []byte(`{"vitals": [{"patient_id": 3, "patient_name": "Ada", "heart_rate": 128}], "alerts": []}`)},
		models.Frame{Event: "new_alert", Data: []byte(`{"id": 7, "patient_id": 3, "severity": "critical"}`)},
	)

	_, ok := s.doc.Card(3)
	assert.True(t, ok)
	assert.Equal(t, 1, s.count.Value())
	assert.True(t, s.board.Modal.Visible())
	assert.Equal(t, models.StateClosed, s.board.Status.State())

	var out bytes.Buffer
	s.render(&out)
	assert.Contains(t, out.String(), "alerts: 1")
	assert.Contains(t, out.String(), "Ada")
}

func TestSessionAcknowledgeDecrementsCount(t *testing.T) {
	cfg := config.Default()
	s := replaySession(t, cfg,
		models.Frame{Event: "new_alert", Data: []byte(`{"id": 7, "patient_id": 3, "severity": "critical"}`)},
	)
	require.Equal(t, 1, s.count.Value())

	s.ctrl.Acknowledge()
	settle(t, s.sched.(*eventloop.Manual), func() bool { return s.count.Value() == 0 })

	item, ok := s.doc.AlertItem(7)
	require.True(t, ok)
	assert.True(t, item.HasClass(stream.ClassAcknowledged))
}

func TestSessionAdminSuppressesAlerts(t *testing.T) {
	cfg := config.Default()
	cfg.Role = models.RoleAdmin
	s := replaySession(t, cfg,
		models.Frame{Event: "new_alert", Data: []byte(`{"id": 7, "severity": "critical"}`)},
	)

	assert.Equal(t, 0, s.count.Value())
	assert.False(t, s.board.Modal.Visible())
}

func TestSessionDetailViewFollowsPatient(t *testing.T) {
	cfg := config.Default()
	cfg.PatientID = 3
	s := replaySession(t, cfg,
		models.Frame{Event: "vital_update", Data: []byte(`{"patient_id": 3, "heart_rate": 72}`)},
	)

	require.NotNil(t, s.chart)
	assert.NotNil(t, s.board.Chart)
	assert.Equal(t, 1, s.chart.Series().Len())
}
