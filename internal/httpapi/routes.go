package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/session"
	"github.com/findtheai/find-the-ai-backend/internal/ws"
)

func SetupRoutes(s *session.Session, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/sessionz", SessionView(s))
	r.Post("/reset", ResetSession(s))
	r.Get("/ws", ws.Handler(s, log))
	return r
}
