package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field")
)

// PayloadError names the payload field that failed validation.
type PayloadError struct {
	Field string
	Err   error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

func (e *PayloadError) Unwrap() error { return e.Err }

func missing(field string) error {
	return &PayloadError{Field: field, Err: ErrMissingField}
}

// decode unmarshals payload into v, reporting type mismatches by field name.
func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &PayloadError{Field: typeErr.Field, Err: ErrInvalidField}
		}
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func requiredString(field string, v *string) (string, error) {
	if v == nil {
		return "", missing(field)
	}
	return *v, nil
}

func requiredInt(field string, v *int) (int, error) {
	if v == nil {
		return 0, missing(field)
	}
	return *v, nil
}

func optionalString(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

// IdTagInfo is the authorization verdict attached to several responses.
type IdTagInfo struct {
	Status string `json:"status"`
}

// emptyResponse is the body of responses that carry no fields.
type emptyResponse struct{}
