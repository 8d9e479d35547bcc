package ocpp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

const (
	minCallLen       = 4
	minCallResultLen = 3
	minCallErrorLen  = 4
)

var emptyObject = json.RawMessage("{}")

// Frame is a positional JSON array that has not yet been bound to an envelope shape.
type Frame []json.RawMessage

// ParseFrame parses data as a JSON array without interpreting its elements.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array: %v", ErrMalformedEnvelope, err)
	}
	if len(f) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedEnvelope)
	}
	return f, nil
}

// MessageType returns the numeric discriminant in the first element.
func (f Frame) MessageType() (MessageType, error) {
	if len(f) == 0 {
		return 0, fmt.Errorf("%w: empty array", ErrMalformedEnvelope)
	}
	var t float64
	if err := json.Unmarshal(f[0], &t); err != nil {
		return 0, fmt.Errorf("%w: message type is not a number", ErrMalformedEnvelope)
	}
	if t != math.Trunc(t) || t < math.MinInt32 || t > math.MaxInt32 {
		return 0, fmt.Errorf("%w: message type %v is not an integer", ErrMalformedEnvelope, t)
	}
	return MessageType(t), nil
}

// CorrelationID returns the second element when it is a string, otherwise "".
func (f Frame) CorrelationID() string {
	if len(f) < 2 {
		return ""
	}
	var id string
	if err := json.Unmarshal(f[1], &id); err != nil {
		return ""
	}
	return id
}

// Call binds the frame to the request shape.
func (f Frame) Call() (Call, error) {
	if len(f) < minCallLen {
		return Call{}, fmt.Errorf("%w: call needs %d elements, got %d", ErrMalformedEnvelope, minCallLen, len(f))
	}
	if err := f.expect(MessageTypeCall); err != nil {
		return Call{}, err
	}
	id, err := f.nonEmptyString(1, "unique id")
	if err != nil {
		return Call{}, err
	}
	action, err := f.nonEmptyString(2, "action")
	if err != nil {
		return Call{}, err
	}
	payload, err := object(f[3], "payload")
	if err != nil {
		return Call{}, err
	}
	return Call{ID: id, Action: action, Payload: payload}, nil
}

// CallResult binds the frame to the success-response shape.
func (f Frame) CallResult() (CallResult, error) {
	if len(f) < minCallResultLen {
		return CallResult{}, fmt.Errorf("%w: call result needs %d elements, got %d", ErrMalformedEnvelope, minCallResultLen, len(f))
	}
	if err := f.expect(MessageTypeCallResult); err != nil {
		return CallResult{}, err
	}
	id, err := f.nonEmptyString(1, "unique id")
	if err != nil {
		return CallResult{}, err
	}
	payload, err := object(f[2], "payload")
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{ID: id, Payload: payload}, nil
}

// CallError binds the frame to the error-response shape. Details are optional.
func (f Frame) CallError() (CallError, error) {
	if len(f) < minCallErrorLen {
		return CallError{}, fmt.Errorf("%w: call error needs %d elements, got %d", ErrMalformedEnvelope, minCallErrorLen, len(f))
	}
	if err := f.expect(MessageTypeCallError); err != nil {
		return CallError{}, err
	}
	var id, code, description string
	if err := json.Unmarshal(f[1], &id); err != nil {
		return CallError{}, fmt.Errorf("%w: unique id is not a string", ErrMalformedEnvelope)
	}
	if err := json.Unmarshal(f[2], &code); err != nil {
		return CallError{}, fmt.Errorf("%w: error code is not a string", ErrMalformedEnvelope)
	}
	if err := json.Unmarshal(f[3], &description); err != nil {
		return CallError{}, fmt.Errorf("%w: error description is not a string", ErrMalformedEnvelope)
	}
	details := emptyObject
	if len(f) > minCallErrorLen {
		d, err := object(f[4], "error details")
		if err != nil {
			return CallError{}, err
		}
		details = d
	}
	return CallError{ID: id, Code: ErrorCode(code), Description: description, Details: details}, nil
}

func (f Frame) expect(want MessageType) error {
	got, err := f.MessageType()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: message type %d, want %d", ErrMalformedEnvelope, got, want)
	}
	return nil
}

func (f Frame) nonEmptyString(i int, name string) (string, error) {
	var s string
	if err := json.Unmarshal(f[i], &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedEnvelope, name)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMalformedEnvelope, name)
	}
	return s, nil
}

func object(raw json.RawMessage, name string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrMalformedEnvelope, name)
	}
	return trimmed, nil
}

// DecodeCall parses data as a request envelope.
func DecodeCall(data []byte) (Call, error) {
	f, err := ParseFrame(data)
	if err != nil {
		return Call{}, err
	}
	return f.Call()
}

// Decode parses data into whichever envelope its discriminant names.
func Decode(data []byte) (Message, error) {
	f, err := ParseFrame(data)
	if err != nil {
		return nil, err
	}
	t, err := f.MessageType()
	if err != nil {
		return nil, err
	}
	switch t {
	case MessageTypeCall:
		return f.Call()
	case MessageTypeCallResult:
		return f.CallResult()
	case MessageTypeCallError:
		return f.CallError()
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrMalformedEnvelope, t)
	}
}

// Encode serialises msg into its positional array form.
// A nil payload or nil details is written as {}.
func Encode(msg Message) ([]byte, error) {
	var fields []any
	switch m := msg.(type) {
	case Call:
		fields = []any{MessageTypeCall, m.ID, m.Action, orEmpty(m.Payload)}
	case CallResult:
		fields = []any{MessageTypeCallResult, m.ID, orEmpty(m.Payload)}
	case CallError:
		fields = []any{MessageTypeCallError, m.ID, string(m.Code), m.Description, orEmpty(m.Details)}
	default:
		return nil, fmt.Errorf("ocpp: cannot encode %T", msg)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("ocpp: encode %s %q: %w", msg.Type(), msg.CorrelationID(), err)
	}
	return data, nil
}

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyObject
	}
	return raw
}
