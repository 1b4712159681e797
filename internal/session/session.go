package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/game"
	"github.com/findtheai/find-the-ai-backend/internal/protocol"
)

type Msg interface{ isSessionMsg() }

// Connect registers a connection and immediately receives the current
// snapshot on its outbox.
type Connect struct {
	ClientID string
	Outbox   chan protocol.ServerMessage
}

type Disconnect struct{ ClientID string }

// FromClient carries one decoded intent from a connection.
type FromClient struct {
	ClientID string
	Msg      protocol.ClientMessage
}

// Tick drives the phase machine with an explicit time, used by tests; the
// loop's own ticker produces the same call with wall-clock time.
type Tick struct{ Now time.Time }

type Shutdown struct{}

// GetView reflects internal state without data races, for tests and the
// debug endpoint.
type GetView struct {
	Reply chan View
}

func (Connect) isSessionMsg()    {}
func (Disconnect) isSessionMsg() {}
func (FromClient) isSessionMsg() {}
func (Tick) isSessionMsg()       {}
func (Shutdown) isSessionMsg()   {}
func (GetView) isSessionMsg()    {}

type View struct {
	NumClients int
	Phase      game.Phase
	Snapshot   game.Snapshot
}

// Session is the single-writer actor owning the authoritative game state.
// All mutations are serialized through its inbox; broadcasts never block the
// loop, a connection that cannot keep up is dropped.
type Session struct {
	inbox   chan Msg
	state   *game.State
	clients map[string]chan protocol.ServerMessage
	log     *zap.Logger
	clock   func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, state *game.State, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan Msg, 64),
		state:   state,
		clients: make(map[string]chan protocol.ServerMessage),
		log:     log,
		clock:   time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case now := <-ticker.C:
			s.emit(s.state.Tick(now))

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				s.clients[msg.ClientID] = msg.Outbox
				s.send(msg.ClientID, protocol.NewGameState(s.state.Snapshot()))
				s.log.Info("client connected",
					zap.String("client", msg.ClientID),
					zap.Int("clients", len(s.clients)))

			case Disconnect:
				if ch, ok := s.clients[msg.ClientID]; ok {
					delete(s.clients, msg.ClientID)
					close(ch)
				}
				s.log.Info("client disconnected",
					zap.String("client", msg.ClientID),
					zap.Int("clients", len(s.clients)))

			case FromClient:
				s.handleIntent(msg)

			case Tick:
				s.emit(s.state.Tick(msg.Now))

			case GetView:
				msg.Reply <- View{
					NumClients: len(s.clients),
					Phase:      s.state.Phase(),
					Snapshot:   s.state.Snapshot(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// handleIntent applies one client intent. A panic in a handler is contained
// here so a bad message can never take down the loop or other connections.
func (s *Session) handleIntent(msg FromClient) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("intent handler panicked",
				zap.Any("panic", r),
				zap.String("client", msg.ClientID))
		}
	}()

	now := s.clock()

	switch m := msg.Msg.(type) {
	case protocol.JoinGame:
		joined := s.state.Join(m.Player)
		s.send(msg.ClientID, protocol.NewJoinConfirmed(m.Player))
		// Broadcast even for a repeat join so stragglers converge.
		s.broadcast(protocol.NewPlayersUpdate(s.state.ScrubbedPlayers()))
		s.log.Info("player joined",
			zap.String("player", m.Player.ID),
			zap.Bool("new", joined),
			zap.Int("players", s.state.NumPlayers()))

	case protocol.PlayerLeft:
		if s.state.Leave(m.PlayerID) {
			s.broadcast(protocol.NewPlayersUpdate(s.state.ScrubbedPlayers()))
			s.log.Info("player left", zap.String("player", m.PlayerID))
		}

	case protocol.ChatSend:
		err := s.state.AppendChat(m.Message)
		switch {
		case errors.Is(err, game.ErrAISender):
			s.send(msg.ClientID, protocol.NewErrorMessage(
				"You are the AI-controlled player for this game and cannot send messages."))
		case err != nil:
			// Duplicate id, likely a retransmit. Drop without comment.
			s.log.Debug("chat message dropped",
				zap.String("id", m.Message.ID), zap.Error(err))
		default:
			s.broadcast(protocol.NewNewMessage(m.Message))
		}

	case protocol.SubmitVote:
		err := s.state.Vote(m.VoterID, m.VotedForID)
		switch {
		case errors.Is(err, game.ErrVotingClosed):
			s.send(msg.ClientID, protocol.NewErrorMessage("Voting is not currently open."))
		case errors.Is(err, game.ErrAIVoter):
			s.send(msg.ClientID, protocol.NewErrorMessage("As the AI-controlled player, you cannot vote."))
		case err != nil:
			s.log.Debug("vote rejected",
				zap.String("voter", m.VoterID), zap.Error(err))
		default:
			// Vote secrecy: confirm to the voter only, no broadcast.
			s.send(msg.ClientID, protocol.NewVoteConfirmed(m.VotedForID))
			if s.state.AllEligibleVoted() {
				s.emit(s.state.CloseVoting(now))
			}
		}

	case protocol.SubmitPrompt:
		s.state.AddPrompt(m.Prompt)
		s.send(msg.ClientID, protocol.NewPromptConfirmed(m.Prompt))

	case protocol.Ping:
		s.send(msg.ClientID, protocol.NewPong(now.UnixMilli()))

	case protocol.GetState:
		s.send(msg.ClientID, protocol.NewGameState(s.state.Snapshot()))

	case protocol.Reset:
		s.state.Reset(now)
		s.broadcast(protocol.NewGameState(s.state.Snapshot()))
		s.log.Info("session reset", zap.String("client", msg.ClientID))
	}
}

// emit pushes the snapshot after each phase event, plus the system chat line
// the transition produced, if any.
func (s *Session) emit(events []game.Event) {
	for _, ev := range events {
		s.log.Info("phase event",
			zap.String("event", string(ev.Type)),
			zap.String("phase", string(s.state.Phase())))
		s.broadcast(protocol.NewGameState(s.state.Snapshot()))
		if ev.Notice != nil {
			s.broadcast(protocol.NewNewMessage(*ev.Notice))
		}
	}
}

func (s *Session) send(clientID string, msg protocol.ServerMessage) {
	ch, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		// Outbox full; the connection is not draining. Drop it.
		delete(s.clients, clientID)
		close(ch)
		s.log.Warn("dropped slow client", zap.String("client", clientID))
	}
}

func (s *Session) broadcast(msg protocol.ServerMessage) {
	for id, ch := range s.clients {
		select {
		case ch <- msg:
		default:
			delete(s.clients, id)
			close(ch)
			s.log.Warn("dropped slow client", zap.String("client", id))
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}
