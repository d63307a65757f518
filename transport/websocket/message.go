package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/damas"
)

const (
	ActionState  = "match:state"
	ActionJoin   = "match:join"
	ActionMove   = "match:move"
	ActionResign = "match:resign"
	ActionError  = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type MovePayload struct {
	FromRow *int `json:"from_row"`
	FromCol *int `json:"from_col"`
	ToRow   *int `json:"to_row"`
	ToCol   *int `json:"to_col"`
}

func (that MovePayload) cells() (damas.Cell, damas.Cell, error) {
	if that.FromRow == nil || that.FromCol == nil || that.ToRow == nil || that.ToCol == nil {
		return damas.Cell{}, damas.Cell{}, fmt.Errorf("%w: from_row, from_col, to_row and to_col are required", apperror.ErrBadRequest)
	}

	return damas.Cell{Row: *that.FromRow, Col: *that.FromCol}, damas.Cell{Row: *that.ToRow, Col: *that.ToCol}, nil
}

func newMessage(action string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Message{Action: action, Payload: raw}, nil
}
