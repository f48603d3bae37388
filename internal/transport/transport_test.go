package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/models"
)

func TestSSEConn_ParsesEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"",
		"data: {\"vitals\": [],",
		"data:  \"alerts\": []}",
		"",
		"id: 7",
		"event: new_alert",
		"data: {\"id\": 1}",
		"",
		"retry: 1000",
		"",
		"data: tail-without-blank-line",
	}, "\r\n")

	conn := NewSSEConn(io.NopCloser(strings.NewReader(stream)), nil)

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Empty(t, f.Event)
	assert.Equal(t, "{\"vitals\": [],\n \"alerts\": []}", string(f.Data))
	assert.False(t, f.ReceivedAt.IsZero())

	f, err = conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "new_alert", f.Event)
	assert.Equal(t, `{"id": 1}`, string(f.Data))

	_, err = conn.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEConn_CloseUnblocksNext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	conn := NewSSEConn(pr, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Next()
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

type openerFunc func(ctx context.Context) (io.ReadCloser, error)

func (f openerFunc) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

func TestSSEDialer_PropagatesOpenError(t *testing.T) {
	boom := errors.New("refused")
	d := NewSSEDialer(openerFunc(func(context.Context) (io.ReadCloser, error) { return nil, boom }))
	assert.Equal(t, "sse", d.Name())

	_, err := d.Dial(context.Background())
	assert.ErrorIs(t, err, boom)
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, srv
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_SSEEndToEnd(t *testing.T) {
	hub, srv := startHub(t)

	d := NewSSEDialer(openerFunc(func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+PathSSE, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}))

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	require.NoError(t, hub.Broadcast(models.Frame{Data: []byte(`{"vitals": [{"patient_id": 1}], "alerts": []}`)}))

	f, err := conn.Next()
	require.NoError(t, err)
	env, err := models.Decode(f)
	require.NoError(t, err)
	assert.Len(t, env.Vitals(), 1)
}

func TestHub_WebSocketEndToEnd(t *testing.T) {
	hub, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + PathSocket
	d := NewWebSocketDialer(url, nil)
	assert.Equal(t, "websocket", d.Name())

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	require.NoError(t, hub.Broadcast(models.Frame{Event: "vital_update", Data: []byte(`{"patient_id": 3, "heart_rate": 72}`)}))

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "vital_update", f.Event)
	env, err := models.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.Vital.PatientID)
}

func TestWebSocketConn_MalformedFrameIsRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteMessage(websocket.TextMessage, []byte("not json"))
		c.WriteMessage(websocket.TextMessage, []byte(`{"event": "new_alert", "data": {"id": 5}}`))
		c.ReadMessage()
	}))
	defer srv.Close()

	conn, err := NewWebSocketDialer("ws"+strings.TrimPrefix(srv.URL, "http"), nil).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "new_alert", f.Event)
}

func TestEncodeSSE(t *testing.T) {
	out := encodeSSE(models.Frame{Event: "snapshot", Data: []byte("a\nb")})
	assert.Equal(t, "event: snapshot\ndata: a\ndata: b\n\n", string(out))

	conn := NewSSEConn(io.NopCloser(strings.NewReader(string(out))), nil)
	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "a\nb", string(f.Data))
}

func TestHub_StubEndpoints(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/api/alerts/active")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "[]", string(body))

	resp, err = http.Post(srv.URL+"/alert/4/acknowledge", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChannelDialer_SingleUse(t *testing.T) {
	frames := make(chan models.Frame, 2)
	frames <- models.Frame{Event: "new_alert", Data: []byte(`{"id": 1}`)}
	close(frames)

	d := NewChannelDialer(frames)
	assert.Equal(t, "replay", d.Name())

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "new_alert", f.Event)

	_, err = conn.Next()
	assert.ErrorIs(t, err, io.EOF)

	_, err = d.Dial(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
