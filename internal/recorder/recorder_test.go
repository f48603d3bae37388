package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/models"
)

var start = time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)

func sample() []models.Frame {
	return []models.Frame{
		{Data: []byte(`{"vitals": [{"patient_id": 1}], "alerts": []}`), ReceivedAt: start},
		{Event: "vital_update", Data: []byte(`{"patient_id": 2, "heart_rate": 88}`), ReceivedAt: start.Add(200 * time.Millisecond)},
		{Event: "new_alert", Data: []byte(`{"id": 4, "severity": "critical"}`), ReceivedAt: start.Add(400 * time.Millisecond)},
	}
}

func record(t *testing.T, format encoding.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shift.rec")
	rec, err := NewRecorder(path, format)
	require.NoError(t, err)

	ch := make(chan models.Frame, len(sample()))
	for _, f := range sample() {
		ch <- f
	}
	close(ch)

	entries := 0
	require.NoError(t, rec.RecordFromChannel(context.Background(), ch, func() { entries++ }))
	assert.Equal(t, 3, entries)
	assert.Equal(t, 3, rec.Count())
	return path
}

func drain(t *testing.T, rp *Replayer) []models.Frame {
	t.Helper()
	out := make(chan models.Frame, 16)
	require.NoError(t, rp.Replay(context.Background(), out))
	close(out)
	var got []models.Frame
	for f := range out {
		got = append(got, f)
	}
	return got
}

func TestRecordAndReplay(t *testing.T) {
	for _, format := range []encoding.Format{encoding.FormatJSON, encoding.FormatProtobuf} {
		t.Run(string(format), func(t *testing.T) {
			path := record(t, format)
			rp := NewReplayer(path, format, 0, false)

			n, err := rp.CountFrames()
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			first, err := rp.FirstFrame()
			require.NoError(t, err)
			assert.Empty(t, first.Event)

			got := drain(t, rp)
			require.Len(t, got, 3)
			for i, want := range sample() {
				assert.Equal(t, want.Event, got[i].Event)
				assert.JSONEq(t, string(want.Data), string(got[i].Data))
				env, err := models.Decode(got[i])
				require.NoError(t, err)
				assert.NotEmpty(t, env.Kind)
			}
		})
	}
}

func TestReplay_PacedBySpeed(t *testing.T) {
	path := record(t, encoding.FormatJSON)
	rp := NewReplayer(path, encoding.FormatJSON, 4, false)

	began := time.Now()
	got := drain(t, rp)
	elapsed := time.Since(began)

	require.Len(t, got, 3)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestReplay_CancelStops(t *testing.T) {
	path := record(t, encoding.FormatJSON)
	rp := NewReplayer(path, encoding.FormatJSON, 0.001, true)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.Frame, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- rp.Replay(ctx, out) }()

	<-out
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("replay did not stop")
	}
}

func TestReplayer_MissingFile(t *testing.T) {
	rp := NewReplayer(filepath.Join(t.TempDir(), "absent"), encoding.FormatJSON, 1, false)
	_, err := rp.CountFrames()
	assert.Error(t, err)
}
