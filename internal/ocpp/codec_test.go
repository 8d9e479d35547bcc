package ocpp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "call",
			msg:  Call{ID: "c1", Action: "Heartbeat", Payload: json.RawMessage(`{}`)},
			want: `[2,"c1","Heartbeat",{}]`,
		},
		{
			name: "call result",
			msg:  CallResult{ID: "r1", Payload: json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`)},
			want: `[3,"r1",{"currentTime":"2024-01-01T00:00:00Z"}]`,
		},
		{
			name: "call result with nil payload",
			msg:  CallResult{ID: "r2"},
			want: `[3,"r2",{}]`,
		},
		{
			name: "call error",
			msg:  NewCallError("x1", NotImplemented, "Unknown action: FooBar"),
			want: `[4,"x1","NotImplemented","Unknown action: FooBar",{}]`,
		},
		{
			name: "call error without correlation id",
			msg:  NewCallError("", ProtocolError, "bad frame"),
			want: `[4,"","ProtocolError","bad frame",{}]`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEncodeRejectsForeignMessage(t *testing.T) {
	t.Parallel()

	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	messages := []Message{
		Call{ID: "b1", Action: "BootNotification", Payload: json.RawMessage(`{"chargePointVendor":"V","chargePointModel":"M"}`)},
		CallResult{ID: "h1", Payload: json.RawMessage(`{"currentTime":"2024-01-01T00:00:00Z"}`)},
		CallError{ID: "e1", Code: FormationViolation, Description: "bad", Details: json.RawMessage(`{"field":"idTag"}`)},
	}

	for _, msg := range messages {
		msg := msg
		t.Run(msg.Type().String(), func(t *testing.T) {
			t.Parallel()

			data, err := Encode(msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg.Type(), decoded.Type())
			assert.Equal(t, msg.CorrelationID(), decoded.CorrelationID())

			switch want := msg.(type) {
			case Call:
				got := decoded.(Call)
				assert.Equal(t, want.Action, got.Action)
				assert.JSONEq(t, string(want.Payload), string(got.Payload))
			case CallResult:
				got := decoded.(CallResult)
				assert.JSONEq(t, string(want.Payload), string(got.Payload))
			case CallError:
				got := decoded.(CallError)
				assert.Equal(t, want.Code, got.Code)
				assert.Equal(t, want.Description, got.Description)
				assert.JSONEq(t, string(want.Details), string(got.Details))
			}
		})
	}
}

func TestDecodeCallMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `hello`},
		{name: "object instead of array", input: `{"a":1}`},
		{name: "empty array", input: `[]`},
		{name: "too short", input: `[2,"id","Heartbeat"]`},
		{name: "result discriminant", input: `[3,"id",{}]`},
		{name: "error discriminant", input: `[4,"id","InternalError","x",{}]`},
		{name: "string discriminant", input: `["2","id","Heartbeat",{}]`},
		{name: "fractional discriminant", input: `[2.5,"id","Heartbeat",{}]`},
		{name: "numeric id", input: `[2,5,"Heartbeat",{}]`},
		{name: "empty id", input: `[2,"","Heartbeat",{}]`},
		{name: "empty action", input: `[2,"id","",{}]`},
		{name: "array payload", input: `[2,"id","Heartbeat",[]]`},
		{name: "null payload", input: `[2,"id","Heartbeat",null]`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeCall([]byte(tt.input))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDecodeCallIgnoresExtraElements(t *testing.T) {
	t.Parallel()

	call, err := DecodeCall([]byte(`[2,"id-1","Authorize",{"idTag":"ABC"},"extra"]`))
	require.NoError(t, err)
	assert.Equal(t, "id-1", call.ID)
	assert.Equal(t, "Authorize", call.Action)
	assert.JSONEq(t, `{"idTag":"ABC"}`, string(call.Payload))
}

func TestFrameCorrelationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: `[2,"abc"]`, want: "abc"},
		{input: `[2,17,"Heartbeat",{}]`, want: ""},
		{input: `[2]`, want: ""},
	}

	for _, tt := range tests {
		f, err := ParseFrame([]byte(tt.input))
		require.NoError(t, err)
		assert.Equal(t, tt.want, f.CorrelationID(), tt.input)
	}
}

func TestCallErrorDetailsOptional(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`[4,"e9","GenericError","oops"]`))
	require.NoError(t, err)

	callErr, ok := msg.(CallError)
	require.True(t, ok)
	assert.Equal(t, GenericError, callErr.Code)
	assert.JSONEq(t, `{}`, string(callErr.Details))
}

func TestErrorCodeWireStrings(t *testing.T) {
	t.Parallel()

	want := map[ErrorCode]string{
		NotImplemented:                "NotImplemented",
		NotSupported:                  "NotSupported",
		InternalError:                 "InternalError",
		ProtocolError:                 "ProtocolError",
		SecurityError:                 "SecurityError",
		FormationViolation:            "FormationViolation",
		PropertyConstraintViolation:   "PropertyConstraintViolation",
		OccurrenceConstraintViolation: "OccurrenceConstraintViolation",
		TypeConstraintViolation:       "TypeConstraintViolation",
		GenericError:                  "GenericError",
	}

	require.Len(t, ErrorCodes, len(want))
	for _, code := range ErrorCodes {
		assert.Equal(t, want[code], code.String())
		assert.True(t, code.Valid())
	}
	assert.False(t, ErrorCode("Nope").Valid())
}

func TestNewCallResult(t *testing.T) {
	t.Parallel()

	res, err := NewCallResult("r5", map[string]int{"interval": 300})
	require.NoError(t, err)
	assert.Equal(t, "r5", res.ID)
	assert.JSONEq(t, `{"interval":300}`, string(res.Payload))

	_, err = NewCallResult("r6", func() {})
	assert.Error(t, err)
}

func TestFrameMessageTypeAcceptsIntegralNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  MessageType
	}{
		{input: `[2,"a","Heartbeat",{}]`, want: MessageTypeCall},
		{input: `[2.0,"a","Heartbeat",{}]`, want: MessageTypeCall},
		{input: `[3e0,"a",{}]`, want: MessageTypeCallResult},
		{input: `[7,"a"]`, want: MessageType(7)},
	}

	for _, tt := range tests {
		f, err := ParseFrame([]byte(tt.input))
		require.NoError(t, err)
		got, err := f.MessageType()
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	call, err := DecodeCall([]byte(`[2.0,"a","Heartbeat",{}]`))
	require.NoError(t, err)
	assert.Equal(t, "Heartbeat", call.Action)

	f, err := ParseFrame([]byte(`[1e20,"a"]`))
	require.NoError(t, err)
	_, err = f.MessageType()
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}
