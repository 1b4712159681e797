package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Round timing. The waiting countdown doubles as the grace window between
// results and the next round.
const (
	WaitingCountdown = 20 * time.Second
	RequeueDelay     = 3 * time.Minute
	ChatDuration     = 60 * time.Second
	VotingDuration   = 10 * time.Second
	MinPlayers       = 2
)

type EventType string

const (
	EvtRoundStarted EventType = "RoundStarted"
	EvtVotingOpened EventType = "VotingOpened"
	EvtRoundEnded   EventType = "RoundEnded"
	EvtWaitingReset EventType = "WaitingReset"
)

// Event is a phase transition produced by a tick. Notice, when set, is a
// system chat line already appended to the log that should be pushed to
// clients alongside the fresh snapshot.
type Event struct {
	Type   EventType
	Notice *ChatMessage
}

// Tick advances the phase machine if the stored deadline has passed. It is
// driven on a fixed interval and never touches the network; time comes in as
// an argument so tests can run rounds without waiting.
func (s *State) Tick(now time.Time) []Event {
	if now.Before(s.deadline) {
		return nil
	}

	switch s.phase {
	case PhaseWaiting:
		if s.inProgress {
			// A round is still running; queue joiners behind it rather
			// than double-starting.
			s.deadline = now.Add(RequeueDelay)
			return nil
		}
		if len(s.players) < MinPlayers {
			s.deadline = now.Add(WaitingCountdown)
			return nil
		}
		return s.startRound(now)

	case PhaseChat:
		return s.openVoting(now)

	case PhaseVoting:
		return s.closeVoting(now)

	case PhaseResults:
		s.enterWaiting(now)
		return []Event{{Type: EvtWaitingReset}}
	}

	return nil
}

// CloseVoting ends the voting phase ahead of its deadline, used when every
// eligible voter has already voted. No-op once voting is closed.
func (s *State) CloseVoting(now time.Time) []Event {
	if !s.votingOpen {
		return nil
	}
	return s.closeVoting(now)
}

func (s *State) startRound(now time.Time) []Event {
	s.roundID++
	s.inProgress = true
	s.votingOpen = false
	s.messages = nil
	s.seen = make(map[string]bool)
	s.votes = make(map[string]string)
	s.voteOrder = nil
	s.results = nil

	pick := s.rng.Intn(len(s.players))
	for i := range s.players {
		s.players[i].Role = RoleHuman
	}
	s.players[pick].Role = RoleAI
	s.aiPlayerID = s.players[pick].ID

	s.phase = PhaseChat
	s.deadline = now.Add(ChatDuration)

	notice := s.systemMessage(now, fmt.Sprintf(
		"Game #%d has started! One player is being controlled by AI. Chat and try to identify who it is.", s.roundID))
	return []Event{{Type: EvtRoundStarted, Notice: notice}}
}

func (s *State) openVoting(now time.Time) []Event {
	s.phase = PhaseVoting
	s.votingOpen = true
	s.deadline = now.Add(VotingDuration)

	notice := s.systemMessage(now,
		"Time to vote! Select the player you think is being controlled by AI.")
	return []Event{{Type: EvtVotingOpened, Notice: notice}}
}

func (s *State) closeVoting(now time.Time) []Event {
	s.votingOpen = false

	counts := make(map[string]int, len(s.votes))
	for _, candidate := range s.votes {
		counts[candidate]++
	}

	// Highest tally wins. Walking first-vote order with a strict comparison
	// makes ties resolve to the earliest tallied candidate.
	mostVoted := ""
	best := 0
	for _, candidate := range s.voteOrder {
		if counts[candidate] > best {
			best = counts[candidate]
			mostVoted = candidate
		}
	}

	s.results = &Result{
		AIPlayerID:            s.aiPlayerID,
		AIPlayerName:          s.playerName(s.aiPlayerID),
		MostVotedPlayerID:     mostVoted,
		MostVotedPlayerName:   s.playerName(mostVoted),
		VoteCounts:            counts,
		CorrectIdentification: mostVoted != "" && mostVoted == s.aiPlayerID,
	}

	s.inProgress = false
	s.phase = PhaseResults
	s.deadline = now.Add(WaitingCountdown)

	verdict := "The AI fooled the players!"
	if s.results.CorrectIdentification {
		verdict = "Players correctly identified the AI!"
	}
	notice := s.systemMessage(now, fmt.Sprintf(
		"Voting has ended! The AI-controlled player was %s. Most votes: %s. %s",
		s.results.AIPlayerName, s.results.MostVotedPlayerName, verdict))
	return []Event{{Type: EvtRoundEnded, Notice: notice}}
}

// enterWaiting always runs with no round in progress; the requeue guard for
// a still-running round lives in Tick's waiting arm.
func (s *State) enterWaiting(now time.Time) {
	s.phase = PhaseWaiting
	s.deadline = now.Add(WaitingCountdown)
}

func (s *State) systemMessage(now time.Time, text string) *ChatMessage {
	m := ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   "system",
		SenderName: "System",
		Text:       text,
		Timestamp:  now.UnixMilli(),
	}
	s.seen[m.ID] = true
	s.messages = append(s.messages, m)
	return &m
}
