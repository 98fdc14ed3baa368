package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Word is a single positioned, rotatable text token on a board.
// Positions are percentages of the board's width and height.
type Word struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
	Rotate   float64 `json:"rotate"`
}

// Validate checks that a word can be stored on a board
func (w Word) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidWord)
	}
	return nil
}

// UnmarshalJSON reads the exact member names only
func (w *Word) UnmarshalJSON(data []byte) error {
	f, err := parseFields(data)
	if err != nil {
		return err
	}

	var out Word
	for key, dst := range map[string]any{
		"id":       &out.ID,
		"text":     &out.Text,
		"xPercent": &out.XPercent,
		"yPercent": &out.YPercent,
		"rotate":   &out.Rotate,
	} {
		if err := f.decode(key, dst); err != nil {
			return err
		}
	}

	*w = out
	return nil
}

// Words is the ordered contents of a board.
type Words []Word

// MarshalJSON encodes a nil collection as an empty array so snapshots of
// fresh boards read as {"words":[]}.
func (ws Words) MarshalJSON() ([]byte, error) {
	if ws == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Word(ws))
}

// Clone returns a copy that shares no backing array with ws
func (ws Words) Clone() Words {
	out := make(Words, len(ws))
	copy(out, ws)
	return out
}

// Find returns the first word with the given id
func (ws Words) Find(id string) (Word, bool) {
	for _, w := range ws {
		if w.ID == id {
			return w, true
		}
	}
	return Word{}, false
}

// Contains reports whether any word carries the given id
func (ws Words) Contains(id string) bool {
	_, ok := ws.Find(id)
	return ok
}

// ClampPercent limits a coordinate to the board, [0, 100].
func ClampPercent(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}
