package protocol

import "github.com/findtheai/find-the-ai-backend/internal/game"

// Wire type tags. JSON envelopes of the shape {"type": ..., ...payload}.
const (
	// Client -> Server
	TypeJoinGame     = "joinGame"
	TypePlayerLeft   = "playerLeft"
	TypeChatMessage  = "chatMessage"
	TypeSubmitVote   = "submitVote"
	TypeSubmitPrompt = "submitPrompt"
	TypePing         = "ping"
	TypeGetState     = "getState"
	TypeReset        = "reset"

	// Server -> Client
	TypeGameState       = "gameState"
	TypePlayersUpdate   = "playersUpdate"
	TypeNewMessage      = "newMessage"
	TypeJoinConfirmed   = "joinConfirmed"
	TypeVoteConfirmed   = "voteConfirmed"
	TypePromptConfirmed = "promptConfirmed"
	TypeErrorMessage    = "errorMessage"
	TypePong            = "pong"
)

// ClientMessage is a decoded client intent. One variant per wire type keeps
// dispatch exhaustive at compile time instead of switching on a raw string.
type ClientMessage interface{ isClientMessage() }

type JoinGame struct{ Player game.Player }

type PlayerLeft struct{ PlayerID string }

type ChatSend struct{ Message game.ChatMessage }

type SubmitVote struct {
	VoterID    string
	VotedForID string
}

type SubmitPrompt struct{ Prompt string }

type Ping struct{}

type GetState struct{}

type Reset struct{}

func (JoinGame) isClientMessage()     {}
func (PlayerLeft) isClientMessage()   {}
func (ChatSend) isClientMessage()     {}
func (SubmitVote) isClientMessage()   {}
func (SubmitPrompt) isClientMessage() {}
func (Ping) isClientMessage()         {}
func (GetState) isClientMessage()     {}
func (Reset) isClientMessage()        {}

// ServerMessage is a decoded server push or reply.
type ServerMessage interface{ isServerMessage() }

type GameState struct {
	Type string        `json:"type"`
	Data game.Snapshot `json:"data"`
}

type PlayersUpdate struct {
	Type    string        `json:"type"`
	Players []game.Player `json:"players"`
}

type NewMessage struct {
	Type    string           `json:"type"`
	Message game.ChatMessage `json:"message"`
}

type JoinConfirmed struct {
	Type   string      `json:"type"`
	Player game.Player `json:"player"`
}

type VoteConfirmed struct {
	Type       string `json:"type"`
	VotedForID string `json:"votedForId,omitempty"`
}

type PromptConfirmed struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func (GameState) isServerMessage()       {}
func (PlayersUpdate) isServerMessage()   {}
func (NewMessage) isServerMessage()      {}
func (JoinConfirmed) isServerMessage()   {}
func (VoteConfirmed) isServerMessage()   {}
func (PromptConfirmed) isServerMessage() {}
func (ErrorMessage) isServerMessage()    {}
func (Pong) isServerMessage()            {}

func NewGameState(snap game.Snapshot) GameState {
	return GameState{Type: TypeGameState, Data: snap}
}

func NewPlayersUpdate(players []game.Player) PlayersUpdate {
	return PlayersUpdate{Type: TypePlayersUpdate, Players: players}
}

func NewNewMessage(m game.ChatMessage) NewMessage {
	return NewMessage{Type: TypeNewMessage, Message: m}
}

func NewJoinConfirmed(p game.Player) JoinConfirmed {
	return JoinConfirmed{Type: TypeJoinConfirmed, Player: p}
}

func NewVoteConfirmed(votedForID string) VoteConfirmed {
	return VoteConfirmed{Type: TypeVoteConfirmed, VotedForID: votedForID}
}

func NewPromptConfirmed(prompt string) PromptConfirmed {
	return PromptConfirmed{Type: TypePromptConfirmed, Prompt: prompt}
}

func NewErrorMessage(text string) ErrorMessage {
	return ErrorMessage{Type: TypeErrorMessage, Message: text}
}

func NewPong(timestamp int64) Pong {
	return Pong{Type: TypePong, Timestamp: timestamp}
}
