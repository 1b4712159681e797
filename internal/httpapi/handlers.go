package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/findtheai/find-the-ai-backend/internal/protocol"
	"github.com/findtheai/find-the-ai-backend/internal/session"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ResetSession wipes the live session back to an empty waiting state. The
// reset intent goes through the actor inbox like any client message; the
// synthetic sender id has no outbox, so only the broadcast side effects land.
func ResetSession(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Inbox() <- session.FromClient{ClientID: "admin", Msg: protocol.Reset{}}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionView exposes the current session snapshot for debugging. It goes
// through the actor's inbox like everything else, so it never races the loop.
func SessionView(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan session.View, 1)
		s.Inbox() <- session.GetView{Reply: reply}

		select {
		case view := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(struct {
				Clients  int    `json:"clients"`
				Phase    string `json:"phase"`
				Snapshot any    `json:"snapshot"`
			}{Clients: view.NumClients, Phase: string(view.Phase), Snapshot: view.Snapshot})
		case <-time.After(2 * time.Second):
			http.Error(w, "session busy", http.StatusServiceUnavailable)
		}
	}
}
