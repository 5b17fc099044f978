package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(env.e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v2/telemetry/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFeed(t *testing.T, conn *websocket.Conn) FeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg FeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestTelemetryFeed_StreamsOutcomes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v2/telemetry", reading("eq1", "Temperature", 40)).Code)

	conn := dialFeed(t, env)

	snapshot := readFeed(t, conn)
	assert.Equal(t, FeedTypeSnapshot, snapshot.Type)
	require.Len(t, snapshot.Entries, 1)
	assert.InDelta(t, 40, snapshot.Entries[0].Value, 0)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v2/telemetry", reading("eq1", "Temperature", 85)).Code)

	msg := readFeed(t, conn)
	assert.Equal(t, FeedTypeOutcome, msg.Type)
	require.NotNil(t, msg.Outcome)
	assert.True(t, msg.Outcome.IsAnomaly())
	assert.Equal(t, []string{"tr1"}, msg.Outcome.ViolatedRuleIDs)
	assert.Len(t, msg.Outcome.Tickets, 1)
}

func TestTelemetryFeed_ClosedOnControllerClose(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	conn := dialFeed(t, env)
	_ = readFeed(t, conn)

	require.Eventually(t, func() bool { return env.ctrl.feed.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	env.ctrl.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestTelemetryFeed_Disabled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(d *Deps) { d.Bus = nil })

	rec := env.do(t, http.MethodGet, "/api/v2/telemetry/ws", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOutcomeFeed_SlowClientSkipsOutcomes(t *testing.T) {
	t.Parallel()

	bus := cbm.NewOutcomeBus()
	t.Cleanup(bus.Stop)
	feed := newOutcomeFeed(bus)

	client, ok := feed.add()
	require.True(t, ok)

	for range feedClientBuffer + 5 {
		feed.broadcast(&cbm.Outcome{})
	}
	assert.Len(t, client.ch, feedClientBuffer)

	feed.close()
	select {
	case <-client.done:
	default:
		t.Fatal("client not stopped on close")
	}

	_, ok = feed.add()
	assert.False(t, ok, "closed feed rejects new clients")
	assert.Zero(t, feed.count())
}
