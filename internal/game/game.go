package game

import (
	"errors"
	"math/rand"
	"slices"
	"strconv"
	"time"
)

var ErrDuplicateMessage = errors.New("duplicate message id")
var ErrAISender = errors.New("ai-controlled player cannot send messages")
var ErrSelfVote = errors.New("cannot vote for yourself")
var ErrVotingClosed = errors.New("voting is not open")
var ErrAIVoter = errors.New("ai-controlled player cannot vote")

type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
	Initials      string `json:"initials"`
	Type          string `json:"type,omitempty"`
	Role          Role   `json:"-"`
	// IsAI is only populated on scrubbed copies sent to clients.
	IsAI bool `json:"isAI"`
}

type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

type Result struct {
	AIPlayerID            string         `json:"aiPlayerId"`
	AIPlayerName          string         `json:"aiPlayerName"`
	MostVotedPlayerID     string         `json:"mostVotedPlayerId"`
	MostVotedPlayerName   string         `json:"mostVotedPlayerName"`
	VoteCounts            map[string]int `json:"voteCounts"`
	CorrectIdentification bool           `json:"correctIdentification"`
}

// Snapshot is the client-safe projection of the session. It deliberately
// carries no phase field; clients derive their view phase from the booleans.
type Snapshot struct {
	Players        []Player      `json:"players"`
	GameInProgress bool          `json:"gameInProgress"`
	NextGameTime   int64         `json:"nextGameTime"`
	CurrentGameID  string        `json:"currentGameId"`
	Messages       []ChatMessage `json:"messages"`
	VotingOpen     bool          `json:"votingOpen"`
	GameResults    *Result       `json:"gameResults"`
}

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseChat    Phase = "chat"
	PhaseVoting  Phase = "voting"
	PhaseResults Phase = "results"
)

// State is the single authoritative session record. It is not safe for
// concurrent use; the session actor is its only writer.
type State struct {
	phase      Phase
	players    []Player
	messages   []ChatMessage
	seen       map[string]bool
	votes      map[string]string
	voteOrder  []string
	results    *Result
	prompts    []string
	aiPlayerID string
	inProgress bool
	votingOpen bool
	deadline   time.Time
	roundID    int
	rng        *rand.Rand
}

func NewState(rng *rand.Rand, now time.Time) *State {
	s := &State{
		seen:    make(map[string]bool),
		votes:   make(map[string]string),
		roundID: 1,
		rng:     rng,
	}
	s.enterWaiting(now)
	return s
}

// Join inserts the player if the id is not already present. Reports whether
// the set changed; callers broadcast the player list either way.
func (s *State) Join(p Player) bool {
	for _, existing := range s.players {
		if existing.ID == p.ID {
			return false
		}
	}
	p.Role = RoleHuman
	p.IsAI = false
	s.players = append(s.players, p)
	return true
}

// Leave removes the player if present. Reports whether anything changed so
// callers can skip the broadcast for unknown ids.
func (s *State) Leave(id string) bool {
	for i, p := range s.players {
		if p.ID == id {
			s.players = slices.Delete(s.players, i, i+1)
			return true
		}
	}
	return false
}

// AppendChat adds a message to the log. Retransmitted ids are rejected so a
// client retry never grows the log twice; the AI-controlled seat is muted
// while its round is running.
func (s *State) AppendChat(m ChatMessage) error {
	if s.inProgress && s.aiPlayerID != "" && m.SenderID == s.aiPlayerID {
		return ErrAISender
	}
	if s.seen[m.ID] {
		return ErrDuplicateMessage
	}
	s.seen[m.ID] = true
	s.messages = append(s.messages, m)
	return nil
}

// Vote records or overwrites the voter's choice. Last vote wins; a voter
// never contributes more than one tally entry.
func (s *State) Vote(voterID, candidateID string) error {
	if !s.votingOpen {
		return ErrVotingClosed
	}
	if voterID == candidateID {
		return ErrSelfVote
	}
	if voterID == s.aiPlayerID {
		return ErrAIVoter
	}
	if !slices.Contains(s.voteOrder, candidateID) {
		s.voteOrder = append(s.voteOrder, candidateID)
	}
	s.votes[voterID] = candidateID
	return nil
}

// AllEligibleVoted reports whether every non-AI player has a recorded vote,
// which lets the round close without waiting out the voting deadline.
func (s *State) AllEligibleVoted() bool {
	if !s.votingOpen || len(s.votes) == 0 {
		return false
	}
	for _, p := range s.players {
		if p.ID == s.aiPlayerID {
			continue
		}
		if _, ok := s.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// AddPrompt stores a persona prompt for the external AI agent, deduplicated.
func (s *State) AddPrompt(prompt string) {
	if slices.Contains(s.prompts, prompt) {
		return
	}
	s.prompts = append(s.prompts, prompt)
}

// Reset clears players, messages, votes, and results and restarts the
// waiting countdown. The prompt library survives; it belongs to the agent,
// not the round.
func (s *State) Reset(now time.Time) {
	s.players = nil
	s.messages = nil
	s.seen = make(map[string]bool)
	s.votes = make(map[string]string)
	s.voteOrder = nil
	s.results = nil
	s.aiPlayerID = ""
	s.inProgress = false
	s.votingOpen = false
	s.phase = PhaseWaiting
	s.deadline = now.Add(WaitingCountdown)
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Players:        s.ScrubbedPlayers(),
		GameInProgress: s.inProgress,
		NextGameTime:   s.deadline.UnixMilli(),
		CurrentGameID:  strconv.Itoa(s.roundID),
		Messages:       slices.Clone(s.messages),
		VotingOpen:     s.votingOpen,
		GameResults:    s.results,
	}
}

// ScrubbedPlayers copies the player list with the isAI marker derived from
// the round's role assignment.
func (s *State) ScrubbedPlayers() []Player {
	out := make([]Player, len(s.players))
	for i, p := range s.players {
		p.IsAI = p.Role == RoleAI
		out[i] = p
	}
	return out
}

func (s *State) Phase() Phase        { return s.phase }
func (s *State) Deadline() time.Time { return s.deadline }
func (s *State) AIPlayerID() string  { return s.aiPlayerID }
func (s *State) Results() *Result    { return s.results }
func (s *State) NumPlayers() int     { return len(s.players) }
func (s *State) Prompts() []string   { return slices.Clone(s.prompts) }

func (s *State) playerName(id string) string {
	if id == "" {
		return "No one"
	}
	for _, p := range s.players {
		if p.ID == id {
			return p.Name
		}
	}
	return "Unknown"
}
