package view

import (
	"github.com/google/uuid"

	"github.com/findtheai/find-the-ai-backend/internal/game"
	"github.com/findtheai/find-the-ai-backend/internal/protocol"
)

// Phase is the derived UI stage. The server never pushes a phase field;
// transitions are inferred from the merged state.
type Phase string

const (
	PhaseJoin    Phase = "join"
	PhaseWaiting Phase = "waiting"
	PhaseChat    Phase = "chat"
	PhaseVoting  Phase = "voting"
	PhaseResults Phase = "results"
)

type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

type Toast struct {
	ID    string
	Level ToastLevel
	Text  string
}

// State is the local, non-authoritative view reconstructed from server
// pushes. Apply is the only mutation path besides the explicit user actions
// SelectVote and TakeToasts.
type State struct {
	Phase           Phase
	Players         []game.Player
	Messages        []game.ChatMessage
	CurrentPlayer   *game.Player
	SelectedVote    string
	VoteConfirmed   bool
	SubmittedPrompt string
	GameInProgress  bool
	VotingOpen      bool
	NextGameTime    int64
	CurrentGameID   string
	Results         *game.Result
	AIControlled    bool
	Toasts          []Toast

	seen map[string]bool
}

func NewState() *State {
	return &State{
		Phase: PhaseJoin,
		seen:  make(map[string]bool),
	}
}

// Apply folds one server message into the state, then re-derives the phase.
// The transition rules run on every update, whatever the message carried,
// because deltas can arrive in any combination.
func (s *State) Apply(msg protocol.ServerMessage) {
	prev := s.transitionInputs()
	playersUpdated := false

	switch m := msg.(type) {
	case protocol.GameState:
		s.Players = m.Data.Players
		s.GameInProgress = m.Data.GameInProgress
		s.VotingOpen = m.Data.VotingOpen
		s.NextGameTime = m.Data.NextGameTime
		s.CurrentGameID = m.Data.CurrentGameID
		s.Results = m.Data.GameResults
		s.replaceMessages(m.Data.Messages)
		playersUpdated = true

	case protocol.PlayersUpdate:
		s.Players = m.Players
		playersUpdated = true

	case protocol.NewMessage:
		s.appendMessage(m.Message)

	case protocol.JoinConfirmed:
		p := m.Player
		s.CurrentPlayer = &p
		s.addToast(ToastSuccess, "Joined game successfully!")

	case protocol.VoteConfirmed:
		s.VoteConfirmed = true
		if m.VotedForID != "" {
			s.SelectedVote = m.VotedForID
		}
		s.addToast(ToastInfo, "Your vote has been recorded")

	case protocol.PromptConfirmed:
		s.SubmittedPrompt = m.Prompt
		s.addToast(ToastSuccess, "Prompt submitted successfully!")

	case protocol.ErrorMessage:
		text := m.Message
		if text == "" {
			text = "An error occurred"
		}
		s.addToast(ToastError, text)

	case protocol.Pong:
		// Heartbeat reply; nothing to merge.
	}

	s.advance(prev, playersUpdated)
}

// SelectVote records a provisional local choice. It stays provisional until
// the server confirms it.
func (s *State) SelectVote(candidateID string) {
	s.SelectedVote = candidateID
	s.VoteConfirmed = false
}

// TakeToasts drains pending toasts for presentation.
func (s *State) TakeToasts() []Toast {
	out := s.Toasts
	s.Toasts = nil
	return out
}

type transitionInputs struct {
	hadPlayer  bool
	inProgress bool
	votingOpen bool
	hadResults bool
}

func (s *State) transitionInputs() transitionInputs {
	return transitionInputs{
		hadPlayer:  s.CurrentPlayer != nil,
		inProgress: s.GameInProgress,
		votingOpen: s.VotingOpen,
		hadResults: s.Results != nil,
	}
}

// advance applies the phase transition rules in priority order.
func (s *State) advance(prev transitionInputs, playersUpdated bool) {
	// 1. An updated player list reveals whether this client's seat is the
	//    AI-controlled one.
	if playersUpdated && s.CurrentPlayer != nil {
		for _, p := range s.Players {
			if p.ID == s.CurrentPlayer.ID {
				s.AIControlled = p.IsAI
				break
			}
		}
	}

	// 2. Identity established: leave the join screen.
	if s.CurrentPlayer != nil && !prev.hadPlayer && s.Phase == PhaseJoin {
		s.Phase = PhaseWaiting
	}

	// 3. Round started. Vote state from the previous round is stale now.
	if s.GameInProgress && !prev.inProgress {
		s.SelectedVote = ""
		s.VoteConfirmed = false
		if s.Phase != PhaseChat {
			s.Phase = PhaseChat
		}
	}

	// 4. Voting opened.
	if s.VotingOpen && !prev.votingOpen && s.Phase != PhaseVoting {
		s.Phase = PhaseVoting
	}

	// 5. Results arrived.
	if s.Results != nil && !prev.hadResults && s.Phase != PhaseResults {
		s.Phase = PhaseResults
	}
}

func (s *State) appendMessage(m game.ChatMessage) {
	if s.seen[m.ID] {
		return
	}
	s.seen[m.ID] = true
	s.Messages = append(s.Messages, m)
}

// replaceMessages swaps in a full snapshot log, rebuilding the dedup set.
func (s *State) replaceMessages(msgs []game.ChatMessage) {
	s.Messages = nil
	s.seen = make(map[string]bool)
	for _, m := range msgs {
		s.appendMessage(m)
	}
}

func (s *State) addToast(level ToastLevel, text string) {
	s.Toasts = append(s.Toasts, Toast{ID: uuid.NewString(), Level: level, Text: text})
}
