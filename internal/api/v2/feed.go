package api

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10 // must be < feedPongWait
	feedMaxMsgSize = 1024
	// feedClientBuffer is how many outcomes a slow client may lag before outcomes are skipped.
	feedClientBuffer = 64
	// feedSnapshotSize is how many recent log entries a new client receives.
	feedSnapshotSize = 10
)

// Feed message types.
const (
	FeedTypeSnapshot = "snapshot"
	FeedTypeOutcome  = "outcome"
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Non-browser clients omit Origin. Browsers must come from the same host.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// FeedMessage is one websocket frame of the live feed.
type FeedMessage struct {
	Type    string                  `json:"type"`
	Entries []entities.TelemetryLog `json:"entries,omitempty"`
	Outcome *cbm.Outcome            `json:"outcome,omitempty"`
}

type feedClient struct {
	ch       chan *cbm.Outcome
	done     chan struct{}
	stopOnce sync.Once
}

func (fc *feedClient) stop() {
	fc.stopOnce.Do(func() { close(fc.done) })
}

// outcomeFeed fans bus outcomes out to websocket clients. A full client buffer
// skips outcomes for that client only.
type outcomeFeed struct {
	mu          sync.Mutex
	clients     map[*feedClient]struct{}
	closed      bool
	unsubscribe func()
}

func newOutcomeFeed(bus *cbm.OutcomeBus) *outcomeFeed {
	f := &outcomeFeed{clients: make(map[*feedClient]struct{})}
	f.unsubscribe = bus.Subscribe(f.broadcast)
	return f
}

func (f *outcomeFeed) broadcast(outcome *cbm.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for fc := range f.clients {
		select {
		case fc.ch <- outcome:
		default:
		}
	}
}

func (f *outcomeFeed) add() (*feedClient, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false
	}
	fc := &feedClient{ch: make(chan *cbm.Outcome, feedClientBuffer), done: make(chan struct{})}
	f.clients[fc] = struct{}{}
	return fc, true
}

func (f *outcomeFeed) remove(fc *feedClient) {
	f.mu.Lock()
	delete(f.clients, fc)
	f.mu.Unlock()
	fc.stop()
}

func (f *outcomeFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *outcomeFeed) close() {
	f.unsubscribe()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for fc := range f.clients {
		fc.stop()
		delete(f.clients, fc)
	}
}

// HandleTelemetryWS streams a snapshot of the recent log followed by every new outcome.
// GET /api/v2/telemetry/ws
func (c *Controller) HandleTelemetryWS(ctx echo.Context) error {
	if c.feed == nil {
		return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "live feed disabled", Message: "Live feed is not available"})
	}

	conn, err := feedUpgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		c.log.Warn("failed to upgrade feed websocket", logger.Error(err))
		return nil
	}
	defer func() { _ = conn.Close() }()

	client, ok := c.feed.add()
	if !ok {
		return nil
	}
	defer c.feed.remove(client)

	conn.SetReadLimit(feedMaxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	// The feed is one-way; reading only processes control frames and detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				client.stop()
				return
			}
		}
	}()

	recent, err := c.deps.Engine.ListRecentLog(ctx.Request().Context(), feedSnapshotSize)
	if err != nil {
		c.log.Warn("failed to load feed snapshot", logger.Error(err))
	}
	if err := writeFeed(conn, FeedMessage{Type: FeedTypeSnapshot, Entries: recent}); err != nil {
		return nil
	}

	pingTicker := time.NewTicker(feedPingPeriod)
	defer pingTicker.Stop()

	// Every write happens on this goroutine; gorilla/websocket allows one concurrent writer.
	for {
		select {
		case outcome := <-client.ch:
			if err := writeFeed(conn, FeedMessage{Type: FeedTypeOutcome, Outcome: outcome}); err != nil {
				return nil
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-client.done:
			closeFeed(conn)
			return nil
		case <-c.ctx.Done():
			closeFeed(conn)
			return nil
		}
	}
}

func writeFeed(conn *websocket.Conn, msg FeedMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return conn.WriteJSON(msg)
}

func closeFeed(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(feedWriteWait))
}
