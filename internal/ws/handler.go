package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/protocol"
	"github.com/findtheai/find-the-ai-backend/internal/session"
)

const (
	writeTimeout = 3 * time.Second
	// Clients heartbeat with application-level pings; a connection silent
	// for this long is considered gone.
	readTimeout = 90 * time.Second
)

func Handler(s *session.Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan protocol.ServerMessage, 16)

		s.Inbox() <- session.Connect{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- session.Disconnect{ClientID: clientID} }()

		// Writer goroutine: drains the outbox until the session closes it.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("encode broadcast", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
			// The session closed our outbox: dropped for not keeping up, or
			// shutting down. Either way the registration is gone and no
			// reply will ever reach this connection again, so kill it and
			// let the client's reconnect path take over.
			_ = conn.Close(websocket.StatusPolicyViolation, "not keeping up")
		}()

		// Reader loop.
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Anything else: exit, the deferred Disconnect prunes us.
				return
			}

			cm, err := protocol.DecodeClient(data)
			if err != nil {
				if errors.Is(err, protocol.ErrUnknownType) {
					// Unknown vocabulary is ignored, not fatal.
					log.Debug("ignoring message", zap.String("client", clientID), zap.Error(err))
				} else {
					log.Warn("dropping malformed message", zap.String("client", clientID), zap.Error(err))
				}
				continue
			}

			s.Inbox() <- session.FromClient{ClientID: clientID, Msg: cm}
		}
	}
}
