package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/findtheai/find-the-ai-backend/internal/game"
)

// ErrUnknownType marks an envelope whose type tag is not in the vocabulary.
// Receivers ignore these rather than failing the connection.
var ErrUnknownType = errors.New("unknown message type")

// ErrMalformed marks an envelope that failed to parse or is missing required
// payload fields. The single message is dropped; the connection stays up.
var ErrMalformed = errors.New("malformed message")

type clientEnvelope struct {
	Type       string            `json:"type"`
	Player     *game.Player      `json:"player,omitempty"`
	PlayerID   string            `json:"playerId,omitempty"`
	Message    *game.ChatMessage `json:"message,omitempty"`
	VoterID    string            `json:"voterId,omitempty"`
	VotedForID string            `json:"votedForId,omitempty"`
	Prompt     string            `json:"prompt,omitempty"`
}

// DecodeClient parses a client intent envelope into its typed form.
func DecodeClient(data []byte) (ClientMessage, error) {
	var env clientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeJoinGame:
		if env.Player == nil || env.Player.ID == "" {
			return nil, fmt.Errorf("%w: joinGame requires player.id", ErrMalformed)
		}
		return JoinGame{Player: *env.Player}, nil

	case TypePlayerLeft:
		if env.PlayerID == "" {
			return nil, fmt.Errorf("%w: playerLeft requires playerId", ErrMalformed)
		}
		return PlayerLeft{PlayerID: env.PlayerID}, nil

	case TypeChatMessage:
		if env.Message == nil || env.Message.ID == "" || env.Message.SenderID == "" {
			return nil, fmt.Errorf("%w: chatMessage requires message.id and message.senderId", ErrMalformed)
		}
		return ChatSend{Message: *env.Message}, nil

	case TypeSubmitVote:
		if env.VoterID == "" || env.VotedForID == "" {
			return nil, fmt.Errorf("%w: submitVote requires voterId and votedForId", ErrMalformed)
		}
		return SubmitVote{VoterID: env.VoterID, VotedForID: env.VotedForID}, nil

	case TypeSubmitPrompt:
		if env.Prompt == "" {
			return nil, fmt.Errorf("%w: submitPrompt requires prompt", ErrMalformed)
		}
		return SubmitPrompt{Prompt: env.Prompt}, nil

	case TypePing:
		return Ping{}, nil

	case TypeGetState:
		return GetState{}, nil

	case TypeReset:
		return Reset{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// EncodeClient serializes a client intent into its wire envelope.
func EncodeClient(m ClientMessage) ([]byte, error) {
	var env clientEnvelope
	switch msg := m.(type) {
	case JoinGame:
		env = clientEnvelope{Type: TypeJoinGame, Player: &msg.Player}
	case PlayerLeft:
		env = clientEnvelope{Type: TypePlayerLeft, PlayerID: msg.PlayerID}
	case ChatSend:
		env = clientEnvelope{Type: TypeChatMessage, Message: &msg.Message}
	case SubmitVote:
		env = clientEnvelope{Type: TypeSubmitVote, VoterID: msg.VoterID, VotedForID: msg.VotedForID}
	case SubmitPrompt:
		env = clientEnvelope{Type: TypeSubmitPrompt, Prompt: msg.Prompt}
	case Ping:
		env = clientEnvelope{Type: TypePing}
	case GetState:
		env = clientEnvelope{Type: TypeGetState}
	case Reset:
		env = clientEnvelope{Type: TypeReset}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
	return json.Marshal(env)
}

type serverBase struct {
	Type string `json:"type"`
}

// DecodeServer parses a server push into its typed form. The error message
// envelope reuses the "message" key with a string payload, so decoding goes
// through per-type structs instead of one shared envelope.
func DecodeServer(data []byte) (ServerMessage, error) {
	var base serverBase
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch base.Type {
	case TypeGameState:
		var m GameState
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypePlayersUpdate:
		var m PlayersUpdate
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeNewMessage:
		var m NewMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeJoinConfirmed:
		var m JoinConfirmed
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeVoteConfirmed:
		var m VoteConfirmed
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypePromptConfirmed:
		var m PromptConfirmed
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypeErrorMessage:
		var m ErrorMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	case TypePong:
		var m Pong
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
}
