package ocpp

import "errors"

// ErrMalformedEnvelope is returned when a frame is not a valid envelope of the expected shape.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// ErrorCode is the OCPP-J error code carried by a CallError. Its value is the wire string.
type ErrorCode string

const (
	NotImplemented                ErrorCode = "NotImplemented"
	NotSupported                  ErrorCode = "NotSupported"
	InternalError                 ErrorCode = "InternalError"
	ProtocolError                 ErrorCode = "ProtocolError"
	SecurityError                 ErrorCode = "SecurityError"
	FormationViolation            ErrorCode = "FormationViolation"
	PropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	OccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	TypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
	GenericError                  ErrorCode = "GenericError"
)

// ErrorCodes lists every defined code.
var ErrorCodes = []ErrorCode{
	NotImplemented,
	NotSupported,
	InternalError,
	ProtocolError,
	SecurityError,
	FormationViolation,
	PropertyConstraintViolation,
	OccurrenceConstraintViolation,
	TypeConstraintViolation,
	GenericError,
}

func (c ErrorCode) String() string {
	return string(c)
}

// Valid reports whether c is one of the defined codes.
func (c ErrorCode) Valid() bool {
	for _, code := range ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
