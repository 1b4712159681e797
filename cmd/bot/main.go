package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/client"
	"github.com/findtheai/find-the-ai-backend/internal/game"
	"github.com/findtheai/find-the-ai-backend/internal/protocol"
	"github.com/findtheai/find-the-ai-backend/internal/view"
)

var chatLines = []string{
	"What do you all think about this game so far?",
	"Anyone else having trouble figuring out who's who?",
	"I've played similar games before but this one is pretty unique.",
	"Has anyone else played this game before? It's my first time.",
	"I wonder who the AI might be in this round.",
	"The timer goes by so quickly!",
	"What strategies are you all using to identify the AI?",
	"I'm not very good at these kinds of games, but I'm enjoying it!",
}

func main() {
	var (
		url  = flag.String("url", defaultURL(), "ws url")
		name = flag.String("name", "bot", "display name")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	self := game.Player{
		ID:       uuid.NewString()[:8],
		Name:     *name,
		Initials: initials(*name),
		Type:     "bot",
	}

	var mu sync.Mutex
	st := view.NewState()

	m := client.New(*url, log, client.Hooks{
		OnMessage: func(sm protocol.ServerMessage) {
			mu.Lock()
			st.Apply(sm)
			for _, t := range st.TakeToasts() {
				log.Infow("toast", "level", t.Level, "text", t.Text)
			}
			mu.Unlock()
		},
		OnStatus: func(s client.Status) {
			log.Infow("connection status", "status", s)
		},
		OnOffline: func() {
			log.Warnw("disconnected from server, reconnecting")
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() { _ = m.Run(ctx) }()

	// Queued for retry if the first dial has not finished yet.
	m.Send(ctx, protocol.JoinGame{Player: self})

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Send(context.Background(), protocol.PlayerLeft{PlayerID: self.ID})
			return
		case <-ticker.C:
		}

		mu.Lock()
		phase := st.Phase
		aiControlled := st.AIControlled
		voted := st.VoteConfirmed
		candidates := pickable(st.Players, self.ID)
		mu.Unlock()

		switch phase {
		case view.PhaseChat:
			if aiControlled {
				// This seat belongs to the agent this round; stay quiet.
				continue
			}
			msg := game.ChatMessage{
				ID:         uuid.NewString()[:8],
				SenderID:   self.ID,
				SenderName: self.Name,
				Text:       chatLines[rng.Intn(len(chatLines))],
				Timestamp:  time.Now().UnixMilli(),
			}
			m.Send(ctx, protocol.ChatSend{Message: msg})

		case view.PhaseVoting:
			if voted || len(candidates) == 0 {
				continue
			}
			pick := candidates[rng.Intn(len(candidates))]
			mu.Lock()
			st.SelectVote(pick)
			mu.Unlock()
			m.Send(ctx, protocol.SubmitVote{VoterID: self.ID, VotedForID: pick})
		}
	}
}

func pickable(players []game.Player, selfID string) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		if p.ID != selfID {
			out = append(out, p.ID)
		}
	}
	return out
}

func initials(name string) string {
	fields := strings.Fields(name)
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(strings.ToUpper(f[:1]))
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

func defaultURL() string {
	if url := os.Getenv("FINDTHEAI_WS_URL"); url != "" {
		return url
	}
	return "ws://localhost:8765/ws"
}
