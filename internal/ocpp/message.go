// Package ocpp implements the OCPP-J envelope: the three positional JSON
// array shapes exchanged between a charge point and the central system.
package ocpp

import "encoding/json"

// Subprotocol16 is the websocket subprotocol negotiated with OCPP 1.6 charge points.
const Subprotocol16 = "ocpp1.6"

// MessageType is the discriminant stored in the first element of every frame.
type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "Call"
	case MessageTypeCallResult:
		return "CallResult"
	case MessageTypeCallError:
		return "CallError"
	default:
		return "Unknown"
	}
}

// Message is one complete envelope. Implementations are immutable values.
type Message interface {
	Type() MessageType
	CorrelationID() string
}

// Call is a request: [2, id, action, payload].
type Call struct {
	ID      string
	Action  string
	Payload json.RawMessage
}

// CallResult is a success response: [3, id, payload].
type CallResult struct {
	ID      string
	Payload json.RawMessage
}

// CallError is an error response: [4, id, errorCode, description, details].
// ID may be empty when the originating frame could not be parsed.
type CallError struct {
	ID          string
	Code        ErrorCode
	Description string
	Details     json.RawMessage
}

var (
	_ Message = Call{}
	_ Message = CallResult{}
	_ Message = CallError{}
)

func (m Call) Type() MessageType { return MessageTypeCall }

func (m Call) CorrelationID() string { return m.ID }

func (m CallResult) Type() MessageType { return MessageTypeCallResult }

func (m CallResult) CorrelationID() string { return m.ID }

func (m CallError) Type() MessageType { return MessageTypeCallError }

func (m CallError) CorrelationID() string { return m.ID }

// NewCallResult marshals payload and wraps it in a CallResult addressed to id.
func NewCallResult(id string, payload any) (CallResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{ID: id, Payload: raw}, nil
}

// NewCallError builds a CallError with empty details.
func NewCallError(id string, code ErrorCode, description string) CallError {
	return CallError{ID: id, Code: code, Description: description}
}
