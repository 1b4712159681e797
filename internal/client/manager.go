package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/protocol"
)

// Status is the user-visible connectivity state.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOnline     Status = "online"
	StatusOffline    Status = "offline"
)

const (
	writeTimeout   = 3 * time.Second
	heartbeatEvery = 20 * time.Second
)

// Hooks are callbacks into the presentation layer. All of them are optional
// and are invoked from the manager's goroutines.
type Hooks struct {
	// OnMessage receives every decoded server push.
	OnMessage func(protocol.ServerMessage)
	// OnStatus fires on every connectivity state change.
	OnStatus func(Status)
	// OnOffline fires when an established connection is lost. It never
	// fires while the very first connection is still being attempted, so
	// page load cannot produce a false disconnect alarm.
	OnOffline func()
}

// Manager owns one logical connection: dial, heartbeat, reconnect with
// exponential backoff, and queuing of important intents while offline.
type Manager struct {
	url     string
	log     *zap.SugaredLogger
	backoff Backoff
	hooks   Hooks
	kick    chan struct{}

	mu            sync.Mutex
	conn          *websocket.Conn
	queue         []protocol.ClientMessage
	status        Status
	everConnected bool
}

func New(url string, log *zap.SugaredLogger, hooks Hooks) *Manager {
	return &Manager{
		url:     url,
		log:     log,
		backoff: DefaultBackoff,
		hooks:   hooks,
		kick:    make(chan struct{}, 1),
		status:  StatusConnecting,
	}
}

// Run maintains the connection until ctx is cancelled. It always returns
// ctx.Err().
func (m *Manager) Run(ctx context.Context) error {
	attempt := 0
	for {
		m.setStatus(StatusConnecting)

		conn, _, err := websocket.Dial(ctx, m.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.wentOffline()
			attempt++
			if err := m.wait(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		attempt = 0
		m.onOpen(ctx, conn)
		m.serve(ctx, conn)
		m.clearConn()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.wentOffline()
		attempt++
		if err := m.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

// wait sleeps out the backoff delay. A Retry call supersedes the pending
// timer and reconnects immediately.
func (m *Manager) wait(ctx context.Context, attempt int) error {
	delay := m.backoff.Delay(attempt)
	m.log.Infow("reconnect scheduled", "attempt", attempt, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-m.kick:
	}
	return nil
}

// Retry skips any pending backoff delay.
func (m *Manager) Retry() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Status returns the current connectivity state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Queued reports how many important intents are parked awaiting reconnect.
func (m *Manager) Queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Send delivers an intent if online. While offline, important intents
// (join, submit-prompt, submit-vote) are queued and flushed after the next
// successful connect; everything else is dropped. Reports whether the
// message went out on the wire now.
func (m *Manager) Send(ctx context.Context, msg protocol.ClientMessage) bool {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.maybeQueue(msg)
		return false
	}
	if err := m.write(ctx, conn, msg); err != nil {
		m.log.Warnw("send failed", "err", err)
		m.maybeQueue(msg)
		return false
	}
	return true
}

func (m *Manager) maybeQueue(msg protocol.ClientMessage) {
	if !important(msg) {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	n := len(m.queue)
	m.mu.Unlock()
	m.log.Infow("queued intent for retry", "type", typeName(msg), "queued", n)
}

func important(msg protocol.ClientMessage) bool {
	switch msg.(type) {
	case protocol.JoinGame, protocol.SubmitPrompt, protocol.SubmitVote:
		return true
	}
	return false
}

func typeName(msg protocol.ClientMessage) string {
	switch msg.(type) {
	case protocol.JoinGame:
		return protocol.TypeJoinGame
	case protocol.PlayerLeft:
		return protocol.TypePlayerLeft
	case protocol.ChatSend:
		return protocol.TypeChatMessage
	case protocol.SubmitVote:
		return protocol.TypeSubmitVote
	case protocol.SubmitPrompt:
		return protocol.TypeSubmitPrompt
	case protocol.Ping:
		return protocol.TypePing
	case protocol.GetState:
		return protocol.TypeGetState
	case protocol.Reset:
		return protocol.TypeReset
	}
	return "unknown"
}

// onOpen primes the fresh connection: ping, then a state request, then any
// intents queued while offline, in original order.
func (m *Manager) onOpen(ctx context.Context, conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.everConnected = true
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	m.setStatus(StatusOnline)
	m.log.Infow("connected", "url", m.url, "flushing", len(pending))

	_ = m.write(ctx, conn, protocol.Ping{})
	_ = m.write(ctx, conn, protocol.GetState{})

	for i, msg := range pending {
		if err := m.write(ctx, conn, msg); err != nil {
			m.mu.Lock()
			m.queue = append(pending[i:], m.queue...)
			m.mu.Unlock()
			return
		}
	}
}

func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go m.heartbeat(connCtx, conn)

	for {
		_, data, err := conn.Read(connCtx)
		if err != nil {
			return
		}
		sm, err := protocol.DecodeServer(data)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				continue
			}
			m.log.Debugw("dropping malformed server message", "err", err)
			continue
		}
		if m.hooks.OnMessage != nil {
			m.hooks.OnMessage(sm)
		}
	}
}

func (m *Manager) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.write(ctx, conn, protocol.Ping{}); err != nil {
				return
			}
		}
	}
}

func (m *Manager) write(ctx context.Context, conn *websocket.Conn, msg protocol.ClientMessage) error {
	payload, err := protocol.EncodeClient(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}

func (m *Manager) clearConn() {
	m.mu.Lock()
	m.conn = nil
	m.mu.Unlock()
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	changed := m.status != s
	m.status = s
	m.mu.Unlock()
	if changed && m.hooks.OnStatus != nil {
		m.hooks.OnStatus(s)
	}
}

func (m *Manager) wentOffline() {
	m.mu.Lock()
	wasConnected := m.everConnected
	changed := m.status != StatusOffline
	m.status = StatusOffline
	m.mu.Unlock()

	if changed && m.hooks.OnStatus != nil {
		m.hooks.OnStatus(StatusOffline)
	}
	if wasConnected && changed && m.hooks.OnOffline != nil {
		m.hooks.OnOffline()
	}
}
