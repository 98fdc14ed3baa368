package domain

import (
	"encoding/json"
	"fmt"
)

// Transport-level message types, distinct from board actions
const (
	MsgJoinBoard MessageType = "JOIN_BOARD"
	MsgSyncState MessageType = "SYNC_STATE"
	MsgJoined    MessageType = "JOINED"
)

// JoinBoard subscribes a connection to a board (client → server)
type JoinBoard struct {
	BoardID string
}

// SyncState carries a room's full state to a joining connection (server → client)
type SyncState struct {
	Words Words
}

// Joined acknowledges a JOIN_BOARD (server → client)
type Joined struct {
	BoardID string
}

func (JoinBoard) Type() MessageType { return MsgJoinBoard }
func (SyncState) Type() MessageType { return MsgSyncState }
func (Joined) Type() MessageType    { return MsgJoined }

func (m JoinBoard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    MessageType `json:"type"`
		BoardID string      `json:"boardId"`
	}{MsgJoinBoard, m.BoardID})
}

func (m SyncState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  MessageType `json:"type"`
		Words Words       `json:"words"`
	}{MsgSyncState, m.Words})
}

func (m Joined) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    MessageType `json:"type"`
		BoardID string      `json:"boardId"`
	}{MsgJoined, m.BoardID})
}

// Encode serializes a message for the wire
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// envelope is the union of every field any message may carry. Pointer
// fields distinguish "absent" from the zero value.
type envelope struct {
	Type     MessageType
	BoardID  *string
	Word     *Word
	Words    *Words
	ID       *string
	XPercent *float64
	YPercent *float64
}

// DecodeClientMessage parses a message sent by a client to the relay:
// JOIN_BOARD or one of the five wire board actions.
func DecodeClientMessage(data []byte) (Message, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	if env.Type == MsgJoinBoard {
		if env.BoardID == nil {
			return nil, fmt.Errorf("%w: %s requires boardId", ErrMalformedMessage, env.Type)
		}
		if *env.BoardID == "" {
			return nil, ErrEmptyBoardID
		}
		return JoinBoard{BoardID: *env.BoardID}, nil
	}

	return decodeWireAction(env)
}

// DecodeServerMessage parses a message sent by the relay to a client:
// SYNC_STATE, JOINED or one of the five relayed board actions.
func DecodeServerMessage(data []byte) (Message, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case MsgSyncState:
		if env.Words == nil {
			return nil, fmt.Errorf("%w: %s requires words", ErrMalformedMessage, env.Type)
		}
		if err := validateWords(*env.Words); err != nil {
			return nil, err
		}
		return SyncState{Words: *env.Words}, nil
	case MsgJoined:
		if env.BoardID == nil {
			return nil, fmt.Errorf("%w: %s requires boardId", ErrMalformedMessage, env.Type)
		}
		return Joined{BoardID: *env.BoardID}, nil
	}

	return decodeWireAction(env)
}

func decodeEnvelope(data []byte) (*envelope, error) {
	f, err := parseFields(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var env envelope
	for key, dst := range map[string]any{
		"type":     &env.Type,
		"boardId":  &env.BoardID,
		"word":     &env.Word,
		"words":    &env.Words,
		"id":       &env.ID,
		"xPercent": &env.XPercent,
		"yPercent": &env.YPercent,
	} {
		if err := f.decode(key, dst); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	}

	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &env, nil
}

// decodeWireAction accepts only the actions peers may send each other.
// SET_STATE is local to a replica and is rejected here.
func decodeWireAction(env *envelope) (Action, error) {
	switch env.Type {
	case MsgAddWord:
		if env.Word == nil {
			return nil, fmt.Errorf("%w: %s requires word", ErrMalformedMessage, env.Type)
		}
		if err := env.Word.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return AddWord{Word: *env.Word}, nil

	case MsgAddWords:
		if env.Words == nil {
			return nil, fmt.Errorf("%w: %s requires words", ErrMalformedMessage, env.Type)
		}
		if err := validateWords(*env.Words); err != nil {
			return nil, err
		}
		return AddWords{Words: *env.Words}, nil

	case MsgMoveWord:
		if env.ID == nil || env.XPercent == nil || env.YPercent == nil {
			return nil, fmt.Errorf("%w: %s requires id, xPercent and yPercent", ErrMalformedMessage, env.Type)
		}
		return MoveWord{ID: *env.ID, XPercent: *env.XPercent, YPercent: *env.YPercent}, nil

	case MsgDeleteWord:
		if env.ID == nil {
			return nil, fmt.Errorf("%w: %s requires id", ErrMalformedMessage, env.Type)
		}
		return DeleteWord{ID: *env.ID}, nil

	case MsgReset:
		return Reset{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
}

func validateWords(ws Words) error {
	for i, w := range ws {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%w: words[%d]: %v", ErrMalformedMessage, i, err)
		}
	}
	return nil
}
