// internal/binder/commands.go
package binder

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/psykos/internal/game"
)

// CommandType names an inbound client request.
type CommandType string

const (
	CmdStart        CommandType = "start"
	CmdSubmitAnswer CommandType = "submit-answer"
	CmdSubmitVote   CommandType = "submit-vote"
	CmdRequestSkip  CommandType = "request-skip"
	CmdMarkReady    CommandType = "mark-ready"
	CmdVoiceStart   CommandType = "voice-start"
	CmdVoiceEnd     CommandType = "voice-end"
)

// Command is implemented by every inbound request type. The set is closed.
type Command interface {
	commandType() CommandType
}

type StartCommand struct{}

type SubmitAnswerCommand struct {
	Text string `json:"text"`
}

type SubmitVoteCommand struct {
	VotedFor uuid.UUID `json:"votedFor"`
}

type RequestSkipCommand struct{}

type MarkReadyCommand struct{}

type VoiceStartCommand struct{}

type VoiceEndCommand struct{}

func (StartCommand) commandType() CommandType        { return CmdStart }
func (SubmitAnswerCommand) commandType() CommandType { return CmdSubmitAnswer }
func (SubmitVoteCommand) commandType() CommandType   { return CmdSubmitVote }
func (RequestSkipCommand) commandType() CommandType  { return CmdRequestSkip }
func (MarkReadyCommand) commandType() CommandType    { return CmdMarkReady }
func (VoiceStartCommand) commandType() CommandType   { return CmdVoiceStart }
func (VoiceEndCommand) commandType() CommandType     { return CmdVoiceEnd }

type envelope struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeCommand parses {"type": ..., "payload": {...}} into a typed command.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed message: %v", game.ErrInvalidArgument, err)
	}

	switch env.Type {
	case CmdStart:
		return StartCommand{}, nil
	case CmdRequestSkip:
		return RequestSkipCommand{}, nil
	case CmdMarkReady:
		return MarkReadyCommand{}, nil
	case CmdVoiceStart:
		return VoiceStartCommand{}, nil
	case CmdVoiceEnd:
		return VoiceEndCommand{}, nil
	case CmdSubmitAnswer:
		var cmd SubmitAnswerCommand
		if err := decodePayload(env, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case CmdSubmitVote:
		var cmd SubmitVoteCommand
		if err := decodePayload(env, &cmd); err != nil {
			return nil, err
		}
		if cmd.VotedFor == uuid.Nil {
			return nil, fmt.Errorf("%w: votedFor is required", game.ErrInvalidArgument)
		}
		return cmd, nil
	case "":
		return nil, fmt.Errorf("%w: message type is required", game.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", game.ErrInvalidArgument, env.Type)
	}
}

func decodePayload(env envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", game.ErrInvalidArgument, env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: bad %s payload: %v", game.ErrInvalidArgument, env.Type, err)
	}
	return nil
}
