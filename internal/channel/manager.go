// Package channel owns the persistent websocket connection to the game
// server: exactly one live connection per room membership, bounded
// auto-reconnect, and a deliberate-close marker so a manager-initiated
// close never triggers a retry.
package channel

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout    = 5 * time.Second
	defaultReconnectDelay = 3 * time.Second
	defaultMaxReconnects  = 3
	writeTimeout          = 3 * time.Second
)

// Config tunes the connection policy. Zero values take the defaults
// above; tests shrink the delays.
type Config struct {
	DialTimeout    time.Duration
	ReconnectDelay time.Duration
	MaxReconnects  int
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = defaultMaxReconnects
	}
	return c
}

// Options wires the manager to its consumers. Frames receives every raw
// inbound frame in delivery order; State (optional) is told about every
// connected-flag flip. State is invoked synchronously and must not call
// back into the Manager.
type Options struct {
	Frames func([]byte)
	State  func(connected bool)
	Logger *zap.Logger
	Config Config
}

// Manager owns at most one live connection. All exported methods are
// safe for concurrent use.
type Manager struct {
	base string
	opts Options
	cfg  Config
	log  *zap.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	connID     string
	roomID     uint
	username   string
	attempts   int
	deliberate bool
	connected  bool
	timer      *time.Timer
	readCancel context.CancelFunc
}

func New(baseURL string, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		base: baseURL,
		opts: opts,
		cfg:  opts.Config.withDefaults(),
		log:  log,
	}
}

// Open establishes the room-scoped connection, closing any prior one
// first. The reconnect counter restarts for the new membership.
func (m *Manager) Open(ctx context.Context, roomID uint, username string) error {
	m.mu.Lock()
	m.closeCurrentLocked("new connection requested")
	m.roomID = roomID
	m.username = username
	m.deliberate = false
	m.attempts = 0
	m.mu.Unlock()

	return m.dial(ctx)
}

// Close tears the connection down deliberately; no reconnect follows.
// Safe to call with no connection open.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliberate = true
	m.closeCurrentLocked("client closing")
}

// Connected reports whether a connection is currently open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Send writes one text frame with a bounded write deadline.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("channel: not connected")
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

func (m *Manager) endpoint(roomID uint, username string) string {
	return fmt.Sprintf("%s/ws/%s?username=%s",
		m.base,
		url.PathEscape(fmt.Sprintf("%d", roomID)),
		url.QueryEscape(username))
}

func (m *Manager) dial(ctx context.Context) error {
	m.mu.Lock()
	addr := m.endpoint(m.roomID, m.username)
	m.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dctx, addr, nil)
	if err != nil {
		m.log.Warn("dial failed", zap.String("addr", addr), zap.Error(err))
		m.mu.Lock()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.deliberate {
		// Closed while we were dialing.
		m.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "client closing")
		return fmt.Errorf("channel: closed during dial")
	}
	m.cancelTimerLocked()
	if m.readCancel != nil {
		m.readCancel()
	}
	m.conn = conn
	m.connID = uuid.NewString()
	m.attempts = 0
	m.setConnectedLocked(true)
	connID := m.connID
	rctx, rcancel := context.WithCancel(context.Background())
	m.readCancel = rcancel
	m.mu.Unlock()

	m.log.Info("channel open", zap.String("conn_id", connID), zap.Uint("room_id", m.roomID))
	go m.readPump(rctx, conn, connID)
	return nil
}

// readPump delivers frames in order for one connection lifetime and
// routes every termination, normal or not, through closed().
func (m *Manager) readPump(ctx context.Context, conn *websocket.Conn, connID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			m.closed(conn, connID, err)
			return
		}
		m.opts.Frames(data)
	}
}

func (m *Manager) closed(conn *websocket.Conn, connID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		// A stale pump for an already-replaced connection.
		return
	}
	m.conn = nil
	m.setConnectedLocked(false)

	status := websocket.CloseStatus(err)
	m.log.Info("channel closed",
		zap.String("conn_id", connID),
		zap.Int("status", int(status)),
		zap.Error(err))

	if m.deliberate || status == websocket.StatusNormalClosure {
		return
	}
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms exactly one retry timer, replacing any
// pending one so retry chains never stack.
func (m *Manager) scheduleReconnectLocked() {
	m.cancelTimerLocked()
	if m.deliberate {
		return
	}
	if m.attempts >= m.cfg.MaxReconnects {
		m.log.Warn("reconnect attempts exhausted", zap.Int("attempts", m.attempts))
		return
	}
	m.attempts++
	attempt := m.attempts
	m.log.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Duration("delay", m.cfg.ReconnectDelay))
	m.timer = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		stale := m.deliberate || m.conn != nil
		m.mu.Unlock()
		if stale {
			return
		}
		_ = m.dial(context.Background())
	})
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) closeCurrentLocked(reason string) {
	m.cancelTimerLocked()
	if m.readCancel != nil {
		m.readCancel()
		m.readCancel = nil
	}
	if m.conn != nil {
		m.conn.Close(websocket.StatusNormalClosure, reason)
		m.conn = nil
	}
	m.setConnectedLocked(false)
}

func (m *Manager) setConnectedLocked(v bool) {
	if m.connected == v {
		return
	}
	m.connected = v
	if m.opts.State != nil {
		m.opts.State(v)
	}
}
