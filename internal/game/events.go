// internal/game/events.go
package game

import (
	"github.com/google/uuid"
)

// EventType names an outbound notification.
type EventType string

const (
	EventSessionState      EventType = "session-state"      // Private snapshot on bind
	EventMembershipChanged EventType = "membership-changed" // Someone joined or left
	EventRoundStarted      EventType = "round-started"
	EventAnswerProgress    EventType = "answer-progress"
	EventVotingStarted     EventType = "voting-started"
	EventSkipProgress      EventType = "skip-progress"
	EventRoundResults      EventType = "round-results"
	EventReadyProgress     EventType = "ready-progress"
	EventReturnedToLobby   EventType = "returned-to-lobby"
	EventHostChanged       EventType = "host-changed"
	EventGameEnded         EventType = "game-ended"
	EventSessionClosed     EventType = "session-closed" // Idle reap or forced close
	EventError             EventType = "error"          // Private rejection notice
	EventVoiceStart        EventType = "voice-start"
	EventVoiceEnd          EventType = "voice-end"
)

// Payload is implemented by every outbound payload type. The set is closed.
type Payload interface {
	eventType() EventType
}

// Event is the envelope written to clients.
type Event struct {
	Type    EventType `json:"type"`
	Payload Payload   `json:"payload"`
}

// NewEvent wraps a payload with its type tag.
func NewEvent(p Payload) Event {
	return Event{Type: p.eventType(), Payload: p}
}

// PlayerView is a member as seen by clients.
type PlayerView struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
	IsHost bool      `json:"isHost"`
	Score  int       `json:"score"`
}

// Standing is one line of the score table.
type Standing struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Present  bool      `json:"present"`
}

type SessionState struct {
	Code         string            `json:"code"`
	Category     string            `json:"category"`
	Phase        Phase             `json:"phase"`
	CurrentRound int               `json:"currentRound"`
	RoundTarget  int               `json:"roundTarget"`
	HostID       uuid.UUID         `json:"hostId"`
	Members      []PlayerView      `json:"members"`
	Scores       map[uuid.UUID]int `json:"scores"`
	InProgress   bool              `json:"inProgress"`
	Prompt       string            `json:"prompt,omitempty"`
	You          uuid.UUID         `json:"you"`
	Answered     bool              `json:"answered"`
	Voted        bool              `json:"voted"`
	// Answers is populated only while voting so a late joiner can still vote.
	Answers []AnswerOption `json:"answers,omitempty"`
}

type MembershipChanged struct {
	Members []PlayerView `json:"members"`
	HostID  uuid.UUID    `json:"hostId"`
	Joined  *PlayerView  `json:"joined,omitempty"`
	Left    *PlayerView  `json:"left,omitempty"`
	Count   int          `json:"count"`
}

type RoundStarted struct {
	Round   int    `json:"round"`
	Total   int    `json:"total"`
	Prompt  string `json:"prompt"`
	Skipped bool   `json:"skipped"` // Previous round was skipped by majority
}

type AnswerProgress struct {
	Submitted int `json:"submitted"`
	Total     int `json:"total"`
}

// AnswerOption is one entry on the voting ballot.
type AnswerOption struct {
	PlayerID uuid.UUID `json:"playerId"`
	Answer   string    `json:"answer"`
}

type VotingStarted struct {
	Round   int            `json:"round"`
	Prompt  string         `json:"prompt"`
	Answers []AnswerOption `json:"answers"`
}

type SkipProgress struct {
	Count  int `json:"count"`
	Total  int `json:"total"`
	Needed int `json:"needed"`
}

// AnswerResult is one answer's outcome for the round.
type AnswerResult struct {
	PlayerID uuid.UUID   `json:"playerId"`
	Name     string      `json:"name"`
	Answer   string      `json:"answer"`
	Voters   []uuid.UUID `json:"voters"`
	Votes    int         `json:"votes"`
}

type RoundResults struct {
	Round   int            `json:"round"`
	Total   int            `json:"total"`
	Prompt  string         `json:"prompt"`
	Results []AnswerResult `json:"results"`
	Scores  []Standing     `json:"scores"`
}

type ReadyProgress struct {
	Count int         `json:"count"`
	Total int         `json:"total"`
	Ready []uuid.UUID `json:"ready"`
}

type ReturnedToLobby struct {
	Reason string `json:"reason"`
}

type HostChanged struct {
	HostID uuid.UUID `json:"hostId"`
	Name   string    `json:"name"`
}

type GameEnded struct {
	Standings []Standing `json:"standings"`
	Winner    *Standing  `json:"winner,omitempty"`
}

type SessionClosed struct {
	Reason string `json:"reason"`
}

type ErrorNotice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type VoiceStart struct {
	PlayerID uuid.UUID `json:"playerId"`
}

type VoiceEnd struct {
	PlayerID uuid.UUID `json:"playerId"`
}

func (SessionState) eventType() EventType      { return EventSessionState }
func (MembershipChanged) eventType() EventType { return EventMembershipChanged }
func (RoundStarted) eventType() EventType      { return EventRoundStarted }
func (AnswerProgress) eventType() EventType    { return EventAnswerProgress }
func (VotingStarted) eventType() EventType     { return EventVotingStarted }
func (SkipProgress) eventType() EventType      { return EventSkipProgress }
func (RoundResults) eventType() EventType      { return EventRoundResults }
func (ReadyProgress) eventType() EventType     { return EventReadyProgress }
func (ReturnedToLobby) eventType() EventType   { return EventReturnedToLobby }
func (HostChanged) eventType() EventType       { return EventHostChanged }
func (GameEnded) eventType() EventType         { return EventGameEnded }
func (SessionClosed) eventType() EventType     { return EventSessionClosed }
func (ErrorNotice) eventType() EventType       { return EventError }
func (VoiceStart) eventType() EventType        { return EventVoiceStart }
func (VoiceEnd) eventType() EventType          { return EventVoiceEnd }

// ErrorEvent builds the private rejection notice for err.
func ErrorEvent(err error) Event {
	return NewEvent(ErrorNotice{Code: ErrorCode(err), Message: err.Error()})
}

// Broadcaster delivers events to the connections bound to a session.
// Implementations must preserve call order per session and must not block.
type Broadcaster interface {
	Broadcast(code string, ev Event)
	SendTo(code string, playerID uuid.UUID, ev Event)
}
