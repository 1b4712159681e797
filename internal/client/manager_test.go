package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/game"
	"github.com/findtheai/find-the-ai-backend/internal/protocol"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestSendWhileOfflineQueuesImportantIntentsOnly(t *testing.T) {
	m := New("ws://localhost:0/ws", testLogger(), Hooks{})

	ok := m.Send(context.Background(), protocol.JoinGame{Player: game.Player{ID: "p1", Name: "alice"}})
	assert.False(t, ok)
	assert.Equal(t, 1, m.Queued())

	ok = m.Send(context.Background(), protocol.SubmitVote{VoterID: "p1", VotedForID: "p2"})
	assert.False(t, ok)
	assert.Equal(t, 2, m.Queued())

	// Chat and ping are not worth replaying stale.
	ok = m.Send(context.Background(), protocol.ChatSend{Message: game.ChatMessage{ID: "m1", SenderID: "p1"}})
	assert.False(t, ok)
	ok = m.Send(context.Background(), protocol.Ping{})
	assert.False(t, ok)
	assert.Equal(t, 2, m.Queued())
}

func TestStatusStartsConnecting(t *testing.T) {
	m := New("ws://localhost:0/ws", testLogger(), Hooks{})
	assert.Equal(t, StatusConnecting, m.Status())
}

// wsURL rewrites an httptest server URL into its websocket form.
func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/ws"
}

// intentServer accepts one websocket connection and forwards the type tag of
// every decoded client intent.
func intentServer(t *testing.T) (*httptest.Server, <-chan string) {
	t.Helper()
	types := make(chan string, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			msg, err := protocol.DecodeClient(data)
			if err != nil {
				continue
			}
			types <- typeName(msg)
		}
	}))
	return srv, types
}

func recvType(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for intent")
		return ""
	}
}

func TestConnectPrimesAndFlushesQueueInOrder(t *testing.T) {
	srv, types := intentServer(t)
	defer srv.Close()

	m := New(wsURL(srv), testLogger(), Hooks{})

	// Parked before the connection exists.
	m.Send(context.Background(), protocol.JoinGame{Player: game.Player{ID: "p1", Name: "alice"}})
	m.Send(context.Background(), protocol.SubmitPrompt{Prompt: "What woke you up today?"})
	require.Equal(t, 2, m.Queued())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	// Ping and a state request first, then the parked intents in order.
	assert.Equal(t, protocol.TypePing, recvType(t, types))
	assert.Equal(t, protocol.TypeGetState, recvType(t, types))
	assert.Equal(t, protocol.TypeJoinGame, recvType(t, types))
	assert.Equal(t, protocol.TypeSubmitPrompt, recvType(t, types))
	assert.Equal(t, 0, m.Queued())
	assert.Equal(t, StatusOnline, m.Status())
}

func TestOnMessageReceivesServerPushes(t *testing.T) {
	pushed := protocol.NewErrorMessage("Voting is closed")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		data, _ := json.Marshal(pushed)
		_ = conn.Write(r.Context(), websocket.MessageText, data)
		// Hold the connection so the client does not cycle.
		_, _, _ = conn.Read(r.Context())
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	got := make(chan protocol.ServerMessage, 1)
	m := New(wsURL(srv), testLogger(), Hooks{
		OnMessage: func(msg protocol.ServerMessage) {
			select {
			case got <- msg:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	select {
	case msg := <-got:
		errMsg, ok := msg.(protocol.ErrorMessage)
		require.True(t, ok, "expected ErrorMessage, got %T", msg)
		assert.Equal(t, "Voting is closed", errMsg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server push")
	}
}

func TestNoOfflineAlarmBeforeFirstConnect(t *testing.T) {
	statuses := make(chan Status, 8)
	offline := make(chan struct{}, 1)

	// Nothing listens here; the dial fails immediately.
	m := New("ws://127.0.0.1:1/ws", testLogger(), Hooks{
		OnStatus: func(s Status) { statuses <- s },
		OnOffline: func() {
			select {
			case offline <- struct{}{}:
			default:
			}
		},
	})
	m.backoff = Backoff{Base: 10 * time.Millisecond, Factor: 1.5, Cap: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	// Wait until at least one failed attempt has been reported.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s == StatusOffline {
				select {
				case <-offline:
					t.Fatal("OnOffline fired before any connection ever succeeded")
				default:
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for offline status")
		}
	}
}

func TestBackoffResetsAfterSuccessfulConnect(t *testing.T) {
	var calls atomic.Int32
	arrivals := make(chan time.Time, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		arrivals <- time.Now()
		switch {
		case n <= 3:
			// Fail the handshake so the dial counts as a failure.
			w.WriteHeader(http.StatusInternalServerError)
		case n == 4:
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			// Connected, then immediately gone again.
			conn.Close(websocket.StatusNormalClosure, "")
		default:
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close(websocket.StatusNormalClosure, "")
			_, _, _ = conn.Read(r.Context())
		}
	}))
	defer srv.Close()

	m := New(wsURL(srv), testLogger(), Hooks{})
	m.backoff = Backoff{Base: 100 * time.Millisecond, Factor: 2, Cap: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	times := make([]time.Time, 0, 5)
	for i := 0; i < 5; i++ {
		select {
		case ts := <-arrivals:
			times = append(times, ts)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for dial %d", i+1)
		}
	}

	// Three failures grew the delay to 400ms. The fourth dial succeeded, so
	// the disconnect that follows it schedules the fifth dial after the base
	// delay again, not after a fourth doubling (800ms).
	gap := times[4].Sub(times[3])
	assert.GreaterOrEqual(t, gap, 80*time.Millisecond, "reconnect skipped the base delay")
	assert.Less(t, gap, 400*time.Millisecond, "delay kept growing despite a successful connection")
}

func TestRetrySupersedesBackoff(t *testing.T) {
	m := New("ws://localhost:0/ws", testLogger(), Hooks{})
	m.backoff = Backoff{Base: time.Hour, Factor: 1.5, Cap: time.Hour}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- m.wait(ctx, 1)
	}()

	m.Retry()
	select {
	case err := <-done:
		assert.NoError(t, err, "retry should end the wait before the timer")
	case <-time.After(time.Second):
		t.Fatal("wait did not return after Retry")
	}
}
