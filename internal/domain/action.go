package domain

import "encoding/json"

// MessageType is the "type" discriminator carried by every wire message
type MessageType string

// Board actions
const (
	MsgSetState   MessageType = "SET_STATE"
	MsgAddWord    MessageType = "ADD_WORD"
	MsgAddWords   MessageType = "ADD_WORDS"
	MsgMoveWord   MessageType = "MOVE_WORD"
	MsgDeleteWord MessageType = "DELETE_WORD"
	MsgReset      MessageType = "RESET"
)

// Message is anything that can travel over the board transport
type Message interface {
	Type() MessageType
}

// Action is a mutation intent applied to a board. The set of actions is
// closed: only the types in this file implement it.
type Action interface {
	Message
	isAction()
}

// SetState replaces the whole collection. It is produced locally from a
// SYNC_STATE snapshot and is never accepted from the wire.
type SetState struct {
	Words Words
}

// AddWord appends one word
type AddWord struct {
	Word Word
}

// AddWords appends a batch of words, preserving their order
type AddWords struct {
	Words Words
}

// MoveWord updates the position of the word with a matching id
type MoveWord struct {
	ID       string
	XPercent float64
	YPercent float64
}

// DeleteWord removes the word with a matching id
type DeleteWord struct {
	ID string
}

// Reset empties the board
type Reset struct{}

func (SetState) Type() MessageType   { return MsgSetState }
func (AddWord) Type() MessageType    { return MsgAddWord }
func (AddWords) Type() MessageType   { return MsgAddWords }
func (MoveWord) Type() MessageType   { return MsgMoveWord }
func (DeleteWord) Type() MessageType { return MsgDeleteWord }
func (Reset) Type() MessageType      { return MsgReset }

func (SetState) isAction()   {}
func (AddWord) isAction()    {}
func (AddWords) isAction()   {}
func (MoveWord) isAction()   {}
func (DeleteWord) isAction() {}
func (Reset) isAction()      {}

func (a SetState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  MessageType `json:"type"`
		Words Words       `json:"words"`
	}{MsgSetState, a.Words})
}

func (a AddWord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		Word Word        `json:"word"`
	}{MsgAddWord, a.Word})
}

func (a AddWords) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  MessageType `json:"type"`
		Words Words       `json:"words"`
	}{MsgAddWords, a.Words})
}

func (a MoveWord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     MessageType `json:"type"`
		ID       string      `json:"id"`
		XPercent float64     `json:"xPercent"`
		YPercent float64     `json:"yPercent"`
	}{MsgMoveWord, a.ID, a.XPercent, a.YPercent})
}

func (a DeleteWord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		ID   string      `json:"id"`
	}{MsgDeleteWord, a.ID})
}

func (a Reset) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type MessageType `json:"type"`
	}{MsgReset})
}

// Apply returns the board that results from applying action to state.
// It never mutates state: structural changes are made on a fresh slice and
// actions that match nothing return state itself.
func Apply(state Words, action Action) Words {
	switch a := action.(type) {
	case SetState:
		return a.Words.Clone()

	case AddWord:
		next := make(Words, 0, len(state)+1)
		next = append(next, state...)
		return append(next, a.Word)

	case AddWords:
		next := make(Words, 0, len(state)+len(a.Words))
		next = append(next, state...)
		return append(next, a.Words...)

	case MoveWord:
		if !state.Contains(a.ID) {
			return state
		}
		next := state.Clone()
		for i := range next {
			if next[i].ID == a.ID {
				next[i].XPercent = a.XPercent
				next[i].YPercent = a.YPercent
			}
		}
		return next

	case DeleteWord:
		if !state.Contains(a.ID) {
			return state
		}
		next := make(Words, 0, len(state)-1)
		for _, w := range state {
			if w.ID != a.ID {
				next = append(next, w)
			}
		}
		return next

	case Reset:
		return Words{}

	default:
		return state
	}
}
