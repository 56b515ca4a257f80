package types

import "encoding/json"

// Client -> Server message types.
const (
	ClientTakeSeat  = "take_seat"  // seat: number
	ClientLeaveSeat = "leave_seat" // {}
	ClientStart     = "start"      // {}
	ClientAction    = "action"     // action: game command, e.g. {"action":"raise","amount":60} or {"chosen":"c07"}
	ClientStatus    = "get_status" // {}
	ClientChat      = "chat"       // text: string
)

// Server -> Client message types.
const (
	ServerState = "state"
	ServerError = "error"
	ServerChat  = "chat"
)

type ClientMessage struct {
	Type   string          `json:"type"`
	Seat   *int            `json:"seat,omitempty"`
	Action json.RawMessage `json:"action,omitempty"`
	Text   string          `json:"text,omitempty"`
}

type ServerMessage struct {
	Type     string     `json:"type"`
	Snapshot *Snapshot  `json:"snapshot,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
	Chat     *ChatBody  `json:"chat,omitempty"`
}

// ErrorBody goes only to the client whose command was rejected.
type ErrorBody struct {
	Kind    string `json:"error_kind"`
	Message string `json:"message"`
}

type ChatBody struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}
